package main

import (
	"context"
	"fmt"

	"github.com/tomvita/Breezehand-Overlay-sub000/cheat"
	"github.com/tomvita/Breezehand-Overlay-sub000/procmeta"
)

// inMemoryCheatService is a bare-bones cheat.CheatService backing the
// CLI's compile/annotate subcommands, which never need a live process
// attached. It is not an implementation of the platform's real cheat
// service (no such capability exists in this harness).
type inMemoryCheatService struct {
	entries []cheat.Entry
	nextID  uint32
}

func newInMemoryCheatService() *inMemoryCheatService {
	return &inMemoryCheatService{nextID: 1}
}

func (s *inMemoryCheatService) ListCheats(ctx context.Context) ([]cheat.Entry, error) {
	out := make([]cheat.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *inMemoryCheatService) GetCheat(ctx context.Context, id uint32) (cheat.Entry, bool, error) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, true, nil
		}
	}
	return cheat.Entry{}, false, nil
}

func (s *inMemoryCheatService) AddCheat(ctx context.Context, e cheat.Entry) error {
	if e.ID == 0 {
		e.ID = s.nextID
		s.nextID++
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *inMemoryCheatService) RemoveCheat(ctx context.Context, id uint32) error {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such cheat: %d", id)
}

func (s *inMemoryCheatService) SetMaster(ctx context.Context, e cheat.Entry) error {
	e.ID = 0
	for i, existing := range s.entries {
		if existing.ID == 0 {
			s.entries[i] = e
			return nil
		}
	}
	s.entries = append([]cheat.Entry{e}, s.entries...)
	return nil
}

func (s *inMemoryCheatService) ToggleCheat(ctx context.Context, id uint32, enabled bool) error {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("no such cheat: %d", id)
}

func (s *inMemoryCheatService) ForceOpenCheatProcess(ctx context.Context) error {
	return fmt.Errorf("no process-attach capability in this harness")
}

func (s *inMemoryCheatService) HasCheatProcess(ctx context.Context) (bool, error) {
	return false, nil
}

func (s *inMemoryCheatService) GetProcessMetadata(ctx context.Context) (procmeta.Metadata, error) {
	return procmeta.Metadata{}, fmt.Errorf("no process-attach capability in this harness")
}

func (s *inMemoryCheatService) ReadProcessMemory(ctx context.Context, addr uint64, buf []byte) error {
	return fmt.Errorf("no process-attach capability in this harness")
}

func (s *inMemoryCheatService) QueryProcessMemory(ctx context.Context, addr uint64) (procmeta.MemoryInfo, error) {
	return procmeta.MemoryInfo{}, fmt.Errorf("no process-attach capability in this harness")
}
