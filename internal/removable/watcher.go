package removable

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"snapbox/internal/logging"
	"snapbox/internal/metrics"
)

// Event is a block device being added or removed.
type Event struct {
	Action string    `json:"action"`
	Device string    `json:"device"`
	At     time.Time `json:"at"`
}

// Watcher listens for udev block device events on a netlink socket.
type Watcher struct {
	onEvent func(Event)
	log     logging.Component

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	done    chan struct{}
	running bool
	last    Event
}

// NewWatcher returns a Watcher calling onEvent, which may be nil, for each event.
func NewWatcher(onEvent func(Event)) *Watcher {
	return &Watcher{
		onEvent: onEvent,
		log:     logging.For("removable"),
	}
}

// Start connects to the udev netlink socket and begins watching. Failing to
// connect is logged and otherwise ignored: drives are still listed on request.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		w.log.Warn("Unable to connect to netlink socket, hotplug events unavailable: %v", err)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, conn, w.quit, w.done)

	w.log.Info("Watching for removable media")
	return nil
}

// Stop closes the netlink socket and waits for the watch loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.quit)
	done := w.done
	w.running = false
	w.mu.Unlock()

	<-done

	w.mu.Lock()
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.mu.Unlock()
	w.log.Info("Stopped watching for removable media")
}

// Running reports whether the watcher is connected.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// LastEvent returns the most recent event, or the zero Event.
func (w *Watcher) LastEvent() Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit, done chan struct{}) {
	defer close(done)

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, matcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handle(uevent)
		case err := <-errs:
			w.log.Warn("netlink monitor error: %v", err)
		}
	}
}

// matcher accepts add and remove events for block partitions and whole disks.
func matcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
		},
	})
	return rules
}

func (w *Watcher) handle(uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		w.log.Debug("Ignoring event without device name (%s %s)", uevent.Action, uevent.KObj)
		return
	}

	ev := Event{Action: string(uevent.Action), Device: device, At: time.Now()}
	metrics.RemovableEventsTotal.WithLabelValues(ev.Action).Inc()
	w.log.Info("Block device %s: %s", ev.Action, ev.Device)

	w.mu.Lock()
	w.last = ev
	w.mu.Unlock()

	if w.onEvent != nil {
		w.onEvent(ev)
	}
}

// deviceName returns the /dev path of the device in uevent, or "".
func deviceName(uevent netlink.UEvent) string {
	if name := uevent.Env["DEVNAME"]; name != "" {
		if !strings.HasPrefix(name, "/dev/") {
			name = "/dev/" + name
		}
		return name
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
