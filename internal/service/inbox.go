package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/taskline/taskline-server/internal/domain"
	domainerrors "github.com/taskline/taskline-server/internal/errors"
	"github.com/taskline/taskline-server/internal/id"
	"github.com/taskline/taskline-server/internal/ratelimit"
	"github.com/taskline/taskline-server/internal/validation"
	"github.com/taskline/taskline-server/internal/watcher"
)

// Inbox subdirectories receiving handled payload files.
const (
	InboxProcessedDir = "processed"
	InboxFailedDir    = "failed"
)

// errDeferred marks a payload that was not attempted and stays in the inbox.
var errDeferred = errors.New("inbox payload deferred")

// InboxService consumes member-list payload files dropped into the sync inbox
// by the sync transport.
type InboxService struct {
	membership *MembershipService
	validator  *validation.Validator
	limiter    *ratelimit.KeyedRateLimiter
	dir        string
	logger     *slog.Logger
}

// NewInboxService creates a new inbox service reading from dir.
// The limiter, keyed by tag UUID, throttles repeated payloads for one tag.
func NewInboxService(membership *MembershipService, validator *validation.Validator, limiter *ratelimit.KeyedRateLimiter, dir string, logger *slog.Logger) *InboxService {
	return &InboxService{
		membership: membership,
		validator:  validator,
		limiter:    limiter,
		dir:        dir,
		logger:     logger,
	}
}

// InboxPayload is a validated member-list payload.
type InboxPayload struct {
	TagUUID string          `json:"tag_uuid" validate:"required,max=64"`
	Members []domain.Member `json:"members"`
}

// inboxFile is the on-disk payload. Members stay raw so that entries are
// decoded with the same lenient rules as every other member list.
type inboxFile struct {
	TagUUID string          `json:"tag_uuid"`
	Members json.RawMessage `json:"members"`
}

// Dir returns the inbox directory.
func (s *InboxService) Dir() string {
	return s.dir
}

// Prepare creates the inbox directory and its processed and failed subdirectories.
func (s *InboxService) Prepare() error {
	for _, dir := range []string{s.dir, s.processedDir(), s.failedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create inbox dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s *InboxService) processedDir() string { return filepath.Join(s.dir, InboxProcessedDir) }
func (s *InboxService) failedDir() string    { return filepath.Join(s.dir, InboxFailedDir) }

// ParsePayload decodes and validates a payload file's contents.
func (s *InboxService) ParsePayload(data []byte) (*InboxPayload, error) {
	var file inboxFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid payload")
	}
	if file.Members == nil {
		return nil, domainerrors.ValidationWithDetails("validation failed",
			map[string]string{"members": "is required"})
	}

	members, err := domain.ParseMembers(string(file.Members))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid member list")
	}

	payload := &InboxPayload{TagUUID: strings.TrimSpace(file.TagUUID), Members: members}
	if err := s.validator.Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ProcessFile synchronizes the tag named in a payload file, then moves the file
// to processed/ on success or failed/ otherwise.
func (s *InboxService) ProcessFile(ctx context.Context, path string) (*SyncResult, error) {
	log := s.logger.With("file", filepath.Base(path))

	result, err := s.process(ctx, path)
	if errors.Is(err, errDeferred) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Leave the file for the next run.
		return nil, err
	}

	dest := s.processedDir()
	if err != nil {
		dest = s.failedDir()
		log.Error("inbox payload rejected", "error", err)
	}

	if moveErr := s.move(path, dest); moveErr != nil {
		log.Error("failed to move inbox payload", "dest", dest, "error", moveErr)
		if err == nil {
			err = moveErr
		}
	}
	return result, err
}

func (s *InboxService) process(ctx context.Context, path string) (*SyncResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	payload, err := s.ParsePayload(data)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, payload.TagUUID); err != nil {
			return nil, fmt.Errorf("%w: %w", errDeferred, err)
		}
	}

	return s.membership.SyncTagMembers(ctx, payload.TagUUID, payload.Members)
}

// move renames path into dir under a unique name.
func (s *InboxService) move(path, dir string) error {
	name, err := id.Generate(id.PrefixInbox)
	if err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, name+"_"+filepath.Base(path)))
}

// pendingFiles lists payload files waiting in the inbox, oldest name first.
func (s *InboxService) pendingFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isPayloadName(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isPayloadName(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}

// ProcessPending handles every payload already waiting in the inbox.
// Returns how many files were processed successfully.
func (s *InboxService) ProcessPending(ctx context.Context) (int, error) {
	files, err := s.pendingFiles()
	if err != nil {
		return 0, err
	}

	ok := 0
	for _, path := range files {
		if _, err := s.ProcessFile(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ok, ctx.Err()
			}
			if errors.Is(err, errDeferred) {
				return ok, err
			}
			continue
		}
		ok++
	}
	return ok, nil
}

// Run processes pending payloads, then every payload that settles in the
// watched inbox until ctx is cancelled.
func (s *InboxService) Run(ctx context.Context, w *watcher.Watcher) error {
	n, err := s.ProcessPending(ctx)
	switch {
	case ctx.Err() != nil:
		return nil
	case err != nil:
		s.logger.Warn("pending inbox payloads not processed", "error", err)
	case n > 0:
		s.logger.Info("processed pending inbox payloads", "count", n)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			if err != nil {
				s.logger.Warn("inbox watcher error", "error", err)
			}
		case event := <-w.Events():
			if event.Type == watcher.EventRemoved || filepath.Dir(event.Path) != filepath.Clean(s.dir) {
				continue
			}
			if !isPayloadName(filepath.Base(event.Path)) {
				continue
			}
			if _, err := os.Stat(event.Path); err != nil {
				continue
			}
			_, _ = s.ProcessFile(ctx, event.Path)
		}
	}
}
