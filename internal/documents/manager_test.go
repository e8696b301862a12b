// internal/documents/manager_test.go
package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muni-flows/internal/common/logger"
	"muni-flows/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeUploader struct {
	uploads   map[string][]byte
	deleted   []string
	failKeys  map[string]bool
	failAll   bool
	uploadErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		uploads:   map[string][]byte{},
		failKeys:  map[string]bool{},
		uploadErr: errors.New("storage unavailable"),
	}
}

func (f *fakeUploader) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.failAll || f.failKeys[key] {
		return "", f.uploadErr
	}
	f.uploads[key] = data
	return "s3://test-bucket/" + key, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.uploads, key)
	return nil
}

func newTestManager(uploader Uploader) *Manager {
	return NewManager(uploader, logger.NewNoOpLogger(), UserNamespace("user-1"), 0)
}

func pdfUpload(name string, size int) FileUpload {
	return FileUpload{
		Name:         name,
		MimeType:     "application/pdf",
		Data:         make([]byte, size),
		DocumentType: "site_plan",
	}
}

// ==========================
// Validation Tests
// ==========================

func TestManager_Add_RejectsOversizedFile(t *testing.T) {
	manager := newTestManager(newFakeUploader())

	doc, err := manager.Add(context.Background(), pdfUpload("huge.pdf", MaxFileSize+1))

	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	assert.Empty(t, manager.Documents(), "rejected files never enter the list")
}

func TestManager_Add_AcceptsFileAtExactLimit(t *testing.T) {
	manager := newTestManager(newFakeUploader())

	doc, err := manager.Add(context.Background(), pdfUpload("exact.pdf", MaxFileSize))

	require.NoError(t, err)
	assert.Equal(t, models.UploadCompleted, doc.UploadStatus)
}

func TestManager_Add_ConfiguredLimitOverridesDefault(t *testing.T) {
	manager := NewManager(newFakeUploader(), logger.NewNoOpLogger(), UserNamespace("user-1"), 100)

	doc, err := manager.Add(context.Background(), pdfUpload("small.pdf", 100))
	require.NoError(t, err)
	assert.Equal(t, models.UploadCompleted, doc.UploadStatus)

	doc, err = manager.Add(context.Background(), pdfUpload("over.pdf", 101))
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
}

func TestManager_Add_MimeAllowlist(t *testing.T) {
	accepted := []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"image/jpeg",
		"image/png",
		"image/gif",
	}
	rejected := []string{"application/zip", "text/html", "image/svg+xml", "video/mp4", ""}

	for _, mime := range accepted {
		t.Run("accepts "+mime, func(t *testing.T) {
			manager := newTestManager(newFakeUploader())
			_, err := manager.Add(context.Background(), FileUpload{
				Name: "file", MimeType: mime, Data: []byte("x"),
			})
			assert.NoError(t, err)
		})
	}

	for _, mime := range rejected {
		t.Run("rejects "+mime, func(t *testing.T) {
			manager := newTestManager(newFakeUploader())
			doc, err := manager.Add(context.Background(), FileUpload{
				Name: "file", MimeType: mime, Data: []byte("x"),
			})
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrFileTypeInvalid))
		})
	}
}

// ==========================
// Lifecycle Tests
// ==========================

func TestManager_Add_SuccessfulUpload(t *testing.T) {
	uploader := newFakeUploader()
	manager := newTestManager(uploader)

	doc, err := manager.Add(context.Background(), pdfUpload("deed.pdf", 1024))

	require.NoError(t, err)
	assert.Equal(t, models.UploadCompleted, doc.UploadStatus)
	assert.Equal(t, "s3://test-bucket/user/user-1/"+doc.ID+"/deed.pdf", doc.StorageReference)
	assert.Len(t, manager.Completed(), 1)
}

func TestManager_Add_FailedUploadStaysInListWithErrorStatus(t *testing.T) {
	uploader := newFakeUploader()
	uploader.failAll = true
	manager := newTestManager(uploader)

	doc, err := manager.Add(context.Background(), pdfUpload("deed.pdf", 1024))

	require.Error(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, models.UploadError, doc.UploadStatus)
	assert.Empty(t, doc.StorageReference)
	assert.Len(t, manager.Documents(), 1, "errored uploads stay visible for removal")
	assert.Empty(t, manager.Completed(), "errored uploads are never attachable")
}

// ==========================
// Removal Tests
// ==========================

func TestManager_Remove_ByIDLeavesOthersUntouched(t *testing.T) {
	uploader := newFakeUploader()
	manager := newTestManager(uploader)

	first, err := manager.Add(context.Background(), pdfUpload("a.pdf", 10))
	require.NoError(t, err)
	second, err := manager.Add(context.Background(), pdfUpload("b.pdf", 10))
	require.NoError(t, err)

	require.NoError(t, manager.Remove(context.Background(), first.ID))

	remaining := manager.Documents()
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)
	assert.Len(t, uploader.deleted, 1)
}

func TestManager_Remove_UnknownID(t *testing.T) {
	manager := newTestManager(newFakeUploader())
	err := manager.Remove(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrDocumentMissing))
}

func TestManager_Forget_ClearsListWithoutDeletingStorage(t *testing.T) {
	uploader := newFakeUploader()
	manager := newTestManager(uploader)
	_, err := manager.Add(context.Background(), pdfUpload("a.pdf", 10))
	require.NoError(t, err)

	manager.Forget()

	assert.Empty(t, manager.Documents())
	assert.Empty(t, uploader.deleted)
}
