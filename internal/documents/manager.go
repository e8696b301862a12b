// internal/documents/manager.go
package documents

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"

	"muni-flows/internal/common/logger"
	"muni-flows/internal/models"
)

// MaxFileSize is the default upload ceiling in bytes, used when the
// deployment configures no limit of its own.
const MaxFileSize = 10 * 1024 * 1024

var (
	ErrFileTooLarge    = errors.New("FILE_TOO_LARGE")
	ErrFileTypeInvalid = errors.New("FILE_TYPE_INVALID")
	ErrDocumentMissing = errors.New("DOCUMENT_NOT_FOUND")
)

// allowedMimeTypes is the upload allowlist. Anything else is rejected
// before a document record is even created.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Uploader stores file bytes under a key and returns a storage reference.
// Satisfied by the S3 client; tests substitute a fake.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// FileUpload is the raw material of one upload request.
type FileUpload struct {
	Name         string
	MimeType     string
	Data         []byte
	DocumentType string
	Description  string
}

// Manager owns the upload list of one wizard draft. It is bound to a
// single session and is not safe for concurrent use, matching the
// session's single-owner model.
type Manager struct {
	uploader    Uploader
	logger      logger.Logger
	namespace   string // key prefix, e.g. user/<id> or record/<id>
	maxFileSize int64
	documents   []*models.UploadedDocument
	keys        map[string]string // document id -> storage key
}

// NewManager creates a document manager whose uploads live under the
// given namespace prefix. maxFileSize caps individual uploads in bytes;
// zero or negative falls back to MaxFileSize.
func NewManager(uploader Uploader, log logger.Logger, namespace string, maxFileSize int64) *Manager {
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	return &Manager{
		uploader:    uploader,
		logger:      log,
		namespace:   namespace,
		maxFileSize: maxFileSize,
		keys:        map[string]string{},
	}
}

// UserNamespace builds the key prefix for uploads made before a primary
// record exists.
func UserNamespace(userID string) string {
	return path.Join("user", userID)
}

// RecordNamespace builds the key prefix for uploads made against an
// existing record.
func RecordNamespace(recordID string) string {
	return path.Join("record", recordID)
}

// Add validates the file and, if acceptable, runs it through the upload
// lifecycle. Validation failures never create a document entry. Upload
// failures leave the document in the list with error status so the user
// can see and remove it; the caller classifies via errors.Is.
func (m *Manager) Add(ctx context.Context, upload FileUpload) (*models.UploadedDocument, error) {
	if upload.Size() > m.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, upload.Name, upload.Size())
	}
	if !allowedMimeTypes[upload.MimeType] {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeInvalid, upload.MimeType)
	}

	doc := &models.UploadedDocument{
		ID:           uuid.New().String(),
		Name:         upload.Name,
		Size:         upload.Size(),
		MimeType:     upload.MimeType,
		DocumentType: upload.DocumentType,
		Description:  upload.Description,
		UploadStatus: models.UploadPending,
	}
	m.documents = append(m.documents, doc)

	key := path.Join(m.namespace, doc.ID, upload.Name)
	m.keys[doc.ID] = key

	doc.UploadStatus = models.UploadUploading
	ref, err := m.uploader.Upload(ctx, key, upload.Data, upload.MimeType)
	if err != nil {
		doc.UploadStatus = models.UploadError
		m.logger.Error("Document upload failed", map[string]interface{}{
			"documentId": doc.ID,
			"name":       doc.Name,
			"error":      err.Error(),
		})
		return doc, fmt.Errorf("upload failed for %s: %w", upload.Name, err)
	}

	doc.UploadStatus = models.UploadCompleted
	doc.StorageReference = ref
	m.logger.Info("Document uploaded", map[string]interface{}{
		"documentId": doc.ID,
		"name":       doc.Name,
		"size":       doc.Size,
	})
	return doc, nil
}

// Documents returns every document regardless of status, in add order.
func (m *Manager) Documents() []*models.UploadedDocument {
	return m.documents
}

// Completed returns only the documents eligible for attachment.
func (m *Manager) Completed() []*models.UploadedDocument {
	var out []*models.UploadedDocument
	for _, doc := range m.documents {
		if doc.UploadStatus == models.UploadCompleted {
			out = append(out, doc)
		}
	}
	return out
}

// Remove drops one document by id, leaving every other entry untouched.
// A completed document's stored object is deleted best-effort.
func (m *Manager) Remove(ctx context.Context, id string) error {
	for i, doc := range m.documents {
		if doc.ID != id {
			continue
		}
		if doc.UploadStatus == models.UploadCompleted {
			if err := m.uploader.Delete(ctx, m.keys[id]); err != nil {
				m.logger.Warn("Failed to delete stored object", map[string]interface{}{
					"documentId": id,
					"error":      err.Error(),
				})
			}
		}
		m.documents = append(m.documents[:i], m.documents[i+1:]...)
		delete(m.keys, id)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDocumentMissing, id)
}

// Forget drops the whole list without touching storage. Wired into the
// session's reset hooks so a discarded draft leaves no orphaned entries
// in memory.
func (m *Manager) Forget() {
	m.documents = nil
	m.keys = map[string]string{}
}

// Size returns the byte length of the payload.
func (f FileUpload) Size() int64 {
	return int64(len(f.Data))
}
