package memberfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"circles-credit-backend/internal/domain/member"
)

// Directory serves member lookups from a members.json file. The file is
// re-read when its modification time changes.
type Directory struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	circles map[string]member.Member
	eoa     map[string]member.Member
}

func NewDirectory(path string) *Directory { return &Directory{path: path} }

// Load parses a members file. A missing or empty file holds no members.
func Load(path string) ([]member.Member, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []member.Member
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse members %s: %w", path, err)
	}
	return out, nil
}

func (d *Directory) Lookup(_ context.Context, address string) (*member.Member, error) {
	addr := member.NormalizeAddress(address)
	if addr == "" {
		return nil, member.ErrNotFound
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.refresh(); err != nil {
		return nil, err
	}
	if m, ok := d.circles[addr]; ok {
		return &m, nil
	}
	if m, ok := d.eoa[addr]; ok {
		return &m, nil
	}
	return nil, member.ErrNotFound
}

func (d *Directory) refresh() error {
	st, err := os.Stat(d.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.modTime, d.circles, d.eoa = time.Time{}, nil, nil
		return nil
	case err != nil:
		return fmt.Errorf("stat members: %w", err)
	}
	if d.circles != nil && st.ModTime().Equal(d.modTime) {
		return nil
	}

	list, err := Load(d.path)
	if err != nil {
		return err
	}
	circles := make(map[string]member.Member, len(list))
	eoa := make(map[string]member.Member)
	for _, m := range list {
		if a := member.NormalizeAddress(m.CirclesAddress); a != "" {
			circles[a] = m
		}
		if a := member.NormalizeAddress(m.EOAWallet); a != "" {
			eoa[a] = m
		}
	}
	d.modTime, d.circles, d.eoa = st.ModTime(), circles, eoa
	return nil
}
