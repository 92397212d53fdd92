package media

import (
	"context"
	"fmt"
	"time"

	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/logging"
)

// cleanupTimeout bounds best-effort deletes that run after the request
// context may already be canceled.
const cleanupTimeout = 10 * time.Second

// CommitFunc durably records the new handle on the owning entity. It runs
// after the upload succeeds and before any old object is deleted.
type CommitFunc func(ctx context.Context, handle Handle) error

// Manager orchestrates staged-file promotion and remote-object retirement.
type Manager struct {
	store  RemoteStore
	logger logging.Logger
}

func NewManager(store RemoteStore, logger logging.Logger) *Manager {
	return &Manager{store: store, logger: logger.With("module", "media")}
}

// Promote uploads the staged file to the remote store, commits the new
// reference, and best-effort deletes the superseded object.
//
// The staged file is discarded on every branch, including cancellation
// after a successful upload; it never outlives the call. Upload failure
// returns common.ErrUploadFailed with no local or remote state referencing
// the attempt. If commit fails, the freshly uploaded object is best-effort
// deleted before the error is returned. A failed delete of previousKey is
// logged as a warning and does not fail the promotion: the entity's new
// state is already durable.
func (m *Manager) Promote(ctx context.Context, staged *StagedFile, previousKey string, commit CommitFunc) (Handle, error) {

	defer func() {
		if err := staged.Discard(); err != nil {
			m.logger.Warn(ctx, "failed to remove staged file", "path", staged.Path, "error", err)
		}
	}()

	content, err := staged.Open()
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}
	defer content.Close()

	obj, err := m.store.Upload(ctx, content, staged.Size, staged.ContentType)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	handle := Handle{Key: obj.Key, URL: obj.URL, ContentType: staged.ContentType}

	if commit != nil {
		if err := commit(ctx, handle); err != nil {
			// The entity never recorded the new reference; drop the
			// uploaded object so it does not become an orphan.
			m.bestEffortDelete(ctx, handle.Key)
			return Handle{}, err
		}
	}

	if previousKey != "" && previousKey != handle.Key {
		m.bestEffortDelete(ctx, previousKey)
	}

	return handle, nil
}

// Retire deletes the remote object for an entity that is being removed.
// The caller treats failure as a warning: the entity record is the
// authority and a failed delete leaves an orphan for out-of-band cleanup.
func (m *Manager) Retire(ctx context.Context, handle Handle) error {
	if handle.Key == "" {
		return nil
	}
	if err := m.store.Delete(ctx, handle.Key); err != nil {
		return fmt.Errorf("retiring object %s: %w", handle.Key, err)
	}
	return nil
}

// bestEffortDelete removes a remote object on a detached context so that a
// canceled request still gets its cleanup attempt. Failure is logged only.
func (m *Manager) bestEffortDelete(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := m.store.Delete(cleanupCtx, key); err != nil {
		m.logger.Warn(ctx, "stale object left in remote storage", "key", key, "error", err)
	}
}
