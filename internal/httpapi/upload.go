package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dsmelov/chirp/internal/common"
	"github.com/dsmelov/chirp/internal/media"
)

// maxUploadSize bounds the in-memory part of multipart parsing; larger
// bodies spill to disk.
const maxUploadSize = 10 << 20

// stageFormFile copies a multipart form file into the staging directory and
// returns its handle. A missing field returns (nil, nil); the caller decides
// whether the file was required. The staged file is owned by the request and
// is discarded by the media manager on every promotion branch.
func (s *Server) stageFormFile(r *http.Request, field string) (*media.StagedFile, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, fmt.Errorf("%w: invalid multipart form", common.ErrorValidation)
		}
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: invalid multipart form", common.ErrorValidation)
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, common.ErrorInternal
	}

	staged, err := os.CreateTemp(s.uploadDir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return nil, common.ErrorInternal
	}

	size, err := io.Copy(staged, file)
	closeErr := staged.Close()
	if err != nil || closeErr != nil {
		_ = os.Remove(staged.Name())
		return nil, common.ErrorInternal
	}

	return &media.StagedFile{
		Path:        staged.Name(),
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
	}, nil
}

// discardStaged removes staged files on handler paths where the media
// manager never took ownership (e.g. validation failures before Promote).
func (s *Server) discardStaged(r *http.Request, files ...*media.StagedFile) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := f.Discard(); err != nil {
			s.logger.Warn(r.Context(), "failed to remove staged file", "path", f.Path, "error", err)
		}
	}
}
