package services

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// StoredFile 落盘后的文件信息
type StoredFile struct {
	Path string // 相对 UploadDir 的存储路径
	Name string // 原始文件名
	Ext  string // 扩展名，不含点
	Size int64
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
}

// UploadDir 资源文件根目录
func UploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return dir
}

func thumbDir() string {
	return filepath.Join(UploadDir(), "thumbnails")
}

// SaveUpload 把上传文件写入磁盘，文件名用 UUID 防止冲突和路径注入
// 图片类型顺带生成缩略图，缩略图失败不影响上传
func SaveUpload(fh *multipart.FileHeader) (*StoredFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(UploadDir(), 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	storedName := uuid.NewString() + ext
	fullPath := filepath.Join(UploadDir(), storedName)

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}

	if imageExts[ext] {
		makeThumbnail(fullPath, storedName)
	}

	return &StoredFile{
		Path: storedName,
		Name: fh.Filename,
		Ext:  strings.TrimPrefix(ext, "."),
		Size: size,
	}, nil
}

// makeThumbnail 生成 320 宽缩略图，按文件名主干命名
func makeThumbnail(fullPath, storedName string) {
	img, err := imaging.Open(fullPath)
	if err != nil {
		log.Printf("Failed to open image for thumbnail %s: %v", storedName, err)
		return
	}
	if err := os.MkdirAll(thumbDir(), 0o755); err != nil {
		log.Printf("Failed to create thumbnail dir: %v", err)
		return
	}

	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
	stem := strings.TrimSuffix(storedName, filepath.Ext(storedName))
	if err := imaging.Save(thumb, filepath.Join(thumbDir(), stem+".jpg")); err != nil {
		log.Printf("Failed to save thumbnail for %s: %v", storedName, err)
	}
}

// FullFilePath 由存储相对路径得到磁盘绝对路径
func FullFilePath(relPath string) string {
	return filepath.Join(UploadDir(), relPath)
}

// DeleteStored 尽力删除物理文件和缩略图，放在数据库事务之外执行
// 失败只打日志，不回滚已提交的删除操作
func DeleteStored(relPath string) {
	if relPath == "" {
		return
	}
	fullPath := FullFilePath(relPath)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to delete stored file %s: %v", relPath, err)
	}

	stem := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	thumbPath := filepath.Join(thumbDir(), stem+".jpg")
	if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to delete thumbnail %s: %v", relPath, err)
	}
}
