package command

import (
	"path/filepath"
	"time"

	"github.com/edirooss/vermilion/internal/persistence/aof"
	"github.com/edirooss/vermilion/internal/persistence/snapshot"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/server"
)

var lastSave = time.Now()

func hSave(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	cfg := d.srv.Config()
	path := filepath.Join(cfg.Dir, cfg.DBFilename)
	if err := snapshot.Save(path, d.srv.Engine()); err != nil {
		return nil, err
	}
	lastSave = time.Now()
	return resp.NewSimpleString("OK"), nil
}

func hBgSave(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	cfg := d.srv.Config()
	path := filepath.Join(cfg.Dir, cfg.DBFilename)
	engine := d.srv.Engine()
	go func() {
		if err := snapshot.Save(path, engine); err == nil {
			lastSave = time.Now()
		} else {
			d.srv.Logger().Sugar().Errorw("bgsave failed", "error", err)
		}
	}()
	return resp.NewSimpleString("Background saving started"), nil
}

func hLastSave(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	return resp.NewInteger(lastSave.Unix()), nil
}

func hBgRewriteAOF(d *Dispatcher, conn *server.Conn, args []string) (*resp.Frame, error) {
	cfg := d.srv.Config()
	path := filepath.Join(cfg.Dir, cfg.AppendFilename)
	engine := d.srv.Engine()
	log := d.srv.Logger()
	go func() {
		if err := aof.Rewrite(path, engine); err != nil {
			log.Sugar().Errorw("aof rewrite failed", "error", err)
		}
	}()
	return resp.NewSimpleString("Background append only file rewriting started"), nil
}
