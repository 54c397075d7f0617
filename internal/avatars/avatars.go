// Package avatars stores profile pictures in a file tree laid out as
// avatars/<userID>/profile.jpg.
package avatars

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"taskzen/internal/models"
)

// DefaultMaxBytes is the upload limit used when none is configured.
const DefaultMaxBytes int64 = 2 << 20

const fileName = "profile.jpg"

// Store writes and reads avatar blobs.
type Store struct {
	fs       afero.Fs
	maxBytes int64
}

// NewStore returns a store rooted at dir on the OS file system.
func NewStore(dir string, maxBytes int64) *Store {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), maxBytes)
}

// New returns a store on top of fs.
func New(fs afero.Fs, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{fs: fs, maxBytes: maxBytes}
}

// Avatar is a stored picture.
type Avatar struct {
	ContentType string
	Data        []byte
}

// Key returns the path of a user's avatar inside the store.
func Key(userID string) string {
	return path.Join("avatars", userID, fileName)
}

// Put validates and stores the avatar of userID. Only PNG and JPEG images
// up to the configured size are accepted.
func (s *Store) Put(userID string, r io.Reader) (Avatar, error) {
	if userID == "" {
		return Avatar{}, models.Invalid("missing user id")
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Avatar{}, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) == 0 {
		return Avatar{}, models.Invalid("avatar is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return Avatar{}, models.Invalid("avatar is larger than %s", humanize.IBytes(uint64(s.maxBytes)))
	}
	contentType := http.DetectContentType(data)
	if contentType != "image/png" && contentType != "image/jpeg" {
		return Avatar{}, models.Invalid("avatar must be a PNG or JPEG image, got %s", contentType)
	}

	key := Key(userID)
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return Avatar{}, fmt.Errorf("create avatar dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, key, data, 0o644); err != nil {
		return Avatar{}, fmt.Errorf("write avatar: %w", err)
	}
	return Avatar{ContentType: contentType, Data: data}, nil
}

// Get loads the avatar of userID.
func (s *Store) Get(userID string) (Avatar, error) {
	data, err := afero.ReadFile(s.fs, Key(userID))
	if errors.Is(err, os.ErrNotExist) {
		return Avatar{}, models.NotFound("avatar")
	}
	if err != nil {
		return Avatar{}, fmt.Errorf("read avatar: %w", err)
	}
	return Avatar{ContentType: http.DetectContentType(data), Data: data}, nil
}

// Delete removes every file stored for userID.
func (s *Store) Delete(userID string) error {
	if userID == "" {
		return nil
	}
	if err := s.fs.RemoveAll(path.Join("avatars", userID)); err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}
	return nil
}

// Size formats the byte size of an avatar for humans.
func (a Avatar) Size() string {
	return humanize.Bytes(uint64(len(a.Data)))
}

// Reader returns the avatar data as a reader.
func (a Avatar) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}
