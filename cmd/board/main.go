// Command board is a headless room participant: it joins a room, mirrors the
// authoritative history, and can import a saved document into the room or
// export what it sees as JSON, PDF, or a rendered PNG snapshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fogleman/gg"
	"github.com/gorilla/websocket"

	"syncboard/internal/board"
	"syncboard/internal/client"
	"syncboard/internal/config"
	"syncboard/internal/discovery"
	"syncboard/internal/export"
	"syncboard/internal/logger"
	"syncboard/internal/protocol"
	"syncboard/internal/render"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configVar := flag.String("config", "", "path to a yaml config file")
	serverVar := flag.String("server", "", "server host:port override")
	discoverVar := flag.Bool("discover", false, "find a server via mDNS instead of -server")
	roomVar := flag.String("room", "", "room to join")
	nameVar := flag.String("name", "", "display name")
	inVar := flag.String("in", "", "JSON document to import into the room")
	outVar := flag.String("out", "", "write the room document as JSON on exit")
	pngVar := flag.String("png", "", "write a rendered PNG snapshot on exit")
	pdfVar := flag.String("pdf", "", "write a PDF export on exit")
	durationVar := flag.Duration("duration", 0, "disconnect after this long (0 = until interrupted)")
	flag.Parse()

	cfg, err := config.Load(*configVar)
	if err != nil {
		return err
	}
	if *serverVar != "" {
		cfg.Client.Server = *serverVar
	}
	if *roomVar != "" {
		cfg.Client.Room = *roomVar
	}
	if *nameVar != "" {
		cfg.Client.Name = *nameVar
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	if *discoverVar {
		found := make(chan string, 1)
		if err := discovery.Browse(func(addr string) {
			select {
			case found <- addr:
			default:
			}
		}); err != nil {
			return fmt.Errorf("mDNS browse: %w", err)
		}
		select {
		case addr := <-found:
			cfg.Client.Server = addr
			log.Info("discovered server", "addr", addr)
		case <-time.After(3 * time.Second):
			return fmt.Errorf("no board server found on the local network")
		}
	}

	u := url.URL{Scheme: "ws", Host: cfg.Client.Server, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	defer conn.Close()
	log.Info("connected", "server", cfg.Client.Server, "room", cfg.Client.Room)

	var writeMu sync.Mutex
	emit := func(msg protocol.Message) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug("send failed", "err", err)
		}
	}

	var src render.ImageSource
	if cfg.Client.ImageDir != "" {
		src = render.DirSource{Root: cfg.Client.ImageDir}
	}
	canvas := render.NewCanvas(cfg.Client.CanvasWidth, cfg.Client.CanvasHeight)
	rec := client.New(canvas, render.NewRenderer(src), emit, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cursors := client.NewCursorOutbox(emit, cfg.Client.CursorRate)
	go cursors.Run(ctx)

	emit(protocol.Message{Type: protocol.TypeJoin, Name: cfg.Client.Name, Room: cfg.Client.Room})

	initDone := make(chan struct{})
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		seenInit := false
		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				log.Info("disconnected", "err", err)
				return
			}
			rec.Apply(msg)
			if msg.Type == protocol.TypeInit && !seenInit {
				seenInit = true
				close(initDone)
			}
		}
	}()

	select {
	case <-initDone:
	case <-readDone:
		return fmt.Errorf("connection closed before snapshot arrived")
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timed out waiting for room snapshot")
	}
	log.Info("joined", "user", rec.Self().ID, "peers", len(rec.Users()))

	if *inVar != "" {
		if err := importDocument(*inVar, emit, cursors); err != nil {
			return err
		}
		log.Info("imported document", "path", *inVar)
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	var timeout <-chan time.Time
	if *durationVar > 0 {
		timeout = time.After(*durationVar)
	}
	select {
	case <-exit:
	case <-timeout:
	case <-readDone:
	}

	doc := rec.Document()
	if *outVar != "" {
		f, err := os.Create(*outVar)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.WriteJSON(f, doc); err != nil {
			return err
		}
		log.Info("wrote document", "path", *outVar, "strokes", len(doc.Strokes))
	}
	if *pdfVar != "" {
		if err := export.WritePDF(*pdfVar, doc); err != nil {
			return err
		}
		log.Info("wrote pdf", "path", *pdfVar)
	}
	if *pngVar != "" {
		if err := gg.SavePNG(*pngVar, rec.Canvas().Image()); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
		log.Info("wrote png", "path", *pngVar)
	}
	return nil
}

// importDocument replays a saved document into the room as ordinary stroke
// intents; the server re-sequences everything, so imported strokes append
// after whatever the room already holds. The cursor outbox trails the
// import, so peers watching the room see where strokes are landing.
func importDocument(path string, emit func(protocol.Message), cursors *client.CursorOutbox) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := export.ReadJSON(f)
	if err != nil {
		return err
	}
	for _, s := range doc.Strokes {
		// fresh ids, so the same document can be imported more than once
		id := board.NewID()
		emit(protocol.Message{
			Type:     protocol.TypeStrokeStart,
			StrokeID: id,
			Tool:     s.Tool,
			Color:    s.Style.Color,
			Size:     s.Style.Size,
			Text:     s.Text,
			Image:    s.Image,
		})
		if len(s.Points) > 0 {
			emit(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: id, Points: s.Points})
			cursors.Move(s.Points[len(s.Points)-1])
		}
		emit(protocol.Message{Type: protocol.TypeStrokeEnd, StrokeID: id})
	}
	return nil
}
