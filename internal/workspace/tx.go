package workspace

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Tx collects the file writes of one Mutate call. The first write to a
// path snapshots its previous content so the transaction can be undone.
type Tx struct {
	ws      *Workspace
	backups map[string]backup
	order   []string
}

type backup struct {
	data    []byte
	existed bool
}

// Path resolves rel inside the workspace directory.
func (tx *Tx) Path(rel string) string {
	return tx.ws.Path(rel)
}

// ReadFile reads a workspace file, seeing the transaction's own writes.
func (tx *Tx) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(tx.Path(rel)) // #nosec G304 - rel is a layout path
}

// WriteFile atomically replaces rel with data.
func (tx *Tx) WriteFile(rel string, data []byte) error {
	path := tx.Path(rel)
	if _, ok := tx.backups[path]; !ok {
		prev, err := os.ReadFile(path) // #nosec G304 - path is inside the workspace
		switch {
		case err == nil:
			tx.backups[path] = backup{data: prev, existed: true}
		case errors.Is(err, fs.ErrNotExist):
			tx.backups[path] = backup{}
		default:
			return FSError("write", err)
		}
		tx.order = append(tx.order, path)
	}
	return FSError("write", writeFile(path, data))
}

// rollback restores every touched file in reverse order.
func (tx *Tx) rollback() error {
	var errs []error
	for i := len(tx.order) - 1; i >= 0; i-- {
		path := tx.order[i]
		b := tx.backups[path]
		if !b.existed {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := writeFile(path, b.data); err != nil {
			errs = append(errs, err)
		}
	}
	tx.ws.Invalidate()
	return errors.Join(errs...)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
