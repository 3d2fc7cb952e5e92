package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/pkg/logger"
	"github.com/google/uuid"
)

// ErrObjectMissing means the document row exists but its object is gone
var ErrObjectMissing = errors.New("document object missing from storage")

// ObjectStorage stores document bodies
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GetFile(ctx context.Context, objectName string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, objectName string) error
}

// Presigner is implemented by storages that can hand out time-limited download links
type Presigner interface {
	GetPresignedURL(ctx context.Context, objectName string) (string, error)
}

// Upload describes a document body to store
type Upload struct {
	TenderID   *int64
	Filename   string
	MimeType   string
	Size       int64
	Visibility string
	Body       io.Reader
}

// DocumentService manages tender documents
type DocumentService struct {
	store   *Store
	ledger  *Ledger
	objects ObjectStorage
	now     func() time.Time
}

func NewDocumentService(store *Store, ledger *Ledger, objects ObjectStorage) *DocumentService {
	return &DocumentService{store: store, ledger: ledger, objects: objects, now: time.Now}
}

// Upload stores the body and records the document
func (s *DocumentService) Upload(ctx context.Context, actor model.Actor, in Upload) (*model.Document, error) {
	if err := authorize(ctx, actor, ActDocumentUpload); err != nil {
		return nil, err
	}
	if in.Visibility == "" {
		in.Visibility = model.VisibilityInternal
	}
	if !model.ValidVisibility(in.Visibility) {
		return nil, invalidInput("unknown visibility %q", in.Visibility)
	}
	in.Filename = strings.ToValidUTF8(in.Filename, "\uFFFD")
	if in.Filename == "" || in.Body == nil {
		return nil, invalidInput("file is required")
	}
	if in.TenderID != nil {
		if _, err := s.store.Queries().GetTender(ctx, *in.TenderID); err != nil {
			return nil, err
		}
	}

	objectKey := fmt.Sprintf("documents/%d/%s%s", actor.ID, uuid.New().String(), path.Ext(in.Filename))
	h := sha256.New()
	if err := s.objects.UploadFile(ctx, objectKey, io.TeeReader(in.Body, h), in.Size, in.MimeType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	doc := &model.Document{
		OwnerID:          actor.ID,
		TenderID:         in.TenderID,
		OriginalFilename: in.Filename,
		ObjectKey:        objectKey,
		MimeType:         in.MimeType,
		Checksum:         hex.EncodeToString(h.Sum(nil)),
		Size:             in.Size,
		Visibility:       in.Visibility,
		CreatedAt:        s.now().UTC(),
	}
	err := s.store.InTx(ctx, func(q *Queries) error {
		if err := q.InsertDocument(ctx, doc); err != nil {
			return err
		}
		payload := map[string]any{
			"filename":   doc.OriginalFilename,
			"checksum":   doc.Checksum,
			"visibility": doc.Visibility,
		}
		if doc.TenderID != nil {
			payload["tender_id"] = *doc.TenderID
		}
		_, err := s.ledger.Append(ctx, q, AuditRecord{
			ActorID:      &actor.ID,
			Action:       model.ActionDocumentUpload,
			ResourceType: model.ResourceDocument,
			ResourceID:   strconv.FormatInt(doc.ID, 10),
			Payload:      payload,
		})
		return err
	})
	if err != nil {
		if delErr := s.objects.DeleteFile(ctx, objectKey); delErr != nil {
			logger.Warn(ctx, "orphaned document object", "object_key", objectKey, "error", delErr)
		}
		return nil, err
	}
	return doc, nil
}

// ListMine returns the actor's documents
func (s *DocumentService) ListMine(ctx context.Context, actor model.Actor) ([]*model.Document, error) {
	return s.store.Queries().ListDocumentsByOwner(ctx, actor.ID)
}

// Open returns the document and a reader for its body. The caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, actor model.Actor, id int64) (*model.Document, io.ReadCloser, error) {
	doc, err := s.store.Queries().GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.Visibility != model.VisibilityPublic {
		if err := authorize(ctx, actor, ActDocumentRead, doc.OwnerID); err != nil {
			return nil, nil, err
		}
	}
	body, err := s.objects.GetFile(ctx, doc.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, body, nil
}

// Link returns a presigned download URL after the same checks as Open
func (s *DocumentService) Link(ctx context.Context, actor model.Actor, id int64) (string, error) {
	presigner, ok := s.objects.(Presigner)
	if !ok {
		return "", invalidInput("document storage does not support download links")
	}
	doc, err := s.store.Queries().GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Visibility != model.VisibilityPublic {
		if err := authorize(ctx, actor, ActDocumentRead, doc.OwnerID); err != nil {
			return "", err
		}
	}
	return presigner.GetPresignedURL(ctx, doc.ObjectKey)
}

// Delete removes the document row, then its object
func (s *DocumentService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	var doc *model.Document
	err := s.store.InTx(ctx, func(q *Queries) error {
		var err error
		doc, err = q.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, actor, ActDocumentDelete, doc.OwnerID); err != nil {
			return err
		}
		if err := q.DeleteDocument(ctx, id); err != nil {
			return err
		}
		_, err = s.ledger.Append(ctx, q, AuditRecord{
			ActorID:      &actor.ID,
			Action:       model.ActionDocumentDelete,
			ResourceType: model.ResourceDocument,
			ResourceID:   strconv.FormatInt(id, 10),
			Payload:      map[string]any{"filename": doc.OriginalFilename, "checksum": doc.Checksum},
		})
		return err
	})
	if err != nil {
		return err
	}
	if err := s.objects.DeleteFile(ctx, doc.ObjectKey); err != nil {
		logger.Warn(ctx, "failed to remove document object", "object_key", doc.ObjectKey, "error", err)
	}
	return nil
}
