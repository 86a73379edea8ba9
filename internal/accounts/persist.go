package accounts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/credvault/internal/filex"
)

func (s *Store) load() {
	ctx := context.Background()

	data, ok, err := filex.ReadFile(s.path)
	if err != nil {
		s.log.Warn(ctx, "accounts file unreadable, starting empty", "path", s.path, "error", err)
		return
	}
	if !ok {
		return
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		backup := s.path + ".corrupt"
		s.log.Warn(ctx, "accounts file corrupted, starting empty", "path", s.path, "backup", backup, "error", err)
		if err := filex.CopyFile(s.path, backup, 0o600); err != nil {
			s.log.Error(ctx, "could not back up corrupted accounts file", "path", s.path, "error", err)
		}
		return
	}
	s.records = records
}

// persist rewrites the whole file. Callers hold s.mu.
func (s *Store) persist() error {
	records := s.records
	if records == nil {
		records = []record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err == nil {
		err = filex.WriteFileAtomic(s.path, b, 0o600)
	}
	if err != nil {
		s.log.Error(context.Background(), "could not write accounts file", "path", s.path, "error", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
