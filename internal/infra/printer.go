package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Printer is the receipt output device.
type Printer interface {
	Print(ctx context.Context, numeroTicket int, contenido []byte) error
}

// SpoolPrinter writes each receipt as ticket_<numero>.txt into a spool
// directory watched by the OS print queue.
type SpoolPrinter struct {
	dir string
}

func NewSpoolPrinter(dir string) (*SpoolPrinter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("spool dir: %w", err)
	}
	return &SpoolPrinter{dir: dir}, nil
}

// Print writes through a temp file and renames it, so the spooler never
// picks up a half-written ticket.
func (p *SpoolPrinter) Print(ctx context.Context, numeroTicket int, contenido []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	final := filepath.Join(p.dir, fmt.Sprintf("ticket_%06d.txt", numeroTicket))
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, contenido, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// Path returns the file a ticket number is spooled to.
func (p *SpoolPrinter) Path(numeroTicket int) string {
	return filepath.Join(p.dir, fmt.Sprintf("ticket_%06d.txt", numeroTicket))
}
