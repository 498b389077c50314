// Package notify narrates PCR run events by playing pre-recorded sound files
// through an external audio player.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-thermocycle/logger"
	"github.com/arloliu/go-thermocycle/pcr"
)

// DefaultQueueSize is the number of pending sounds kept before new ones are dropped.
const DefaultQueueSize = 16

// DefaultPlayTimeout bounds a single player invocation.
const DefaultPlayTimeout = 30 * time.Second

var ErrPlayerEmpty = errors.New("notify: player is empty")

// Runner runs an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}

		return err
	}

	return nil
}

// SoundName returns the sound file base name announcing n, or "" when n has
// no recording.
func SoundName(n pcr.Notification) string {
	switch n.Event {
	case pcr.EventRunStart:
		return "pcr_start"
	case pcr.EventStage:
		if n.Stage == pcr.StageElongation {
			return "inner_elongation"
		}
		return n.Stage
	case pcr.EventCycle:
		return "cycle_" + strconv.Itoa(n.Cycle)
	case pcr.EventWaitSteadyState:
		return "wait_for_SS"
	case pcr.EventIncubate:
		return "incubate_reagent"
	case pcr.EventRunEnd:
		return "pcr_end"
	case pcr.EventExitPrompt:
		return "exit"
	default:
		return ""
	}
}

type Option func(*Speaker)

func WithRunner(r Runner) Option {
	return func(s *Speaker) {
		if r != nil {
			s.runner = r
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Speaker) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithQueueSize(n int) Option {
	return func(s *Speaker) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

func WithPlayTimeout(d time.Duration) Option {
	return func(s *Speaker) {
		if d > 0 {
			s.playTimeout = d
		}
	}
}

// Speaker is a pcr.Notifier playing one sound per event. Sounds are played
// one at a time on a background goroutine so Notify never blocks the run.
type Speaker struct {
	player      string
	args        []string
	dir         string
	runner      Runner
	logger      logger.Logger
	queueSize   int
	playTimeout time.Duration

	queue     chan string
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ pcr.Notifier = (*Speaker)(nil)

// NewSpeaker starts a speaker invoking "player args... dir/<sound>.wav".
func NewSpeaker(player string, args []string, dir string, opts ...Option) (*Speaker, error) {
	if strings.TrimSpace(player) == "" {
		return nil, ErrPlayerEmpty
	}

	s := &Speaker{
		player:      player,
		args:        append([]string(nil), args...),
		dir:         dir,
		runner:      ExecRunner{},
		logger:      logger.GetLogger(),
		queueSize:   DefaultQueueSize,
		playTimeout: DefaultPlayTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan string, s.queueSize)

	go s.loop()

	return s, nil
}

// Notify queues the sound for n. It drops the sound when the queue is full
// or the speaker is closed.
func (s *Speaker) Notify(n pcr.Notification) {
	name := SoundName(n)
	if name == "" {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	select {
	case s.queue <- name:
	default:
		s.logger.Warn("notify: queue full, sound dropped", "sound", name)
	}
}

// Close stops accepting sounds and waits until the queued ones are played.
func (s *Speaker) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})
	<-s.done

	return nil
}

func (s *Speaker) loop() {
	defer close(s.done)

	for name := range s.queue {
		s.play(name)
	}
}

func (s *Speaker) play(name string) {
	path := filepath.Join(s.dir, name+".wav")
	args := append(append([]string(nil), s.args...), path)

	ctx, cancel := context.WithTimeout(context.Background(), s.playTimeout)
	defer cancel()

	if err := s.runner.Run(ctx, s.player, args...); err != nil {
		s.logger.Warn("notify: play failed", "sound", path, "error", err)
		return
	}
	s.logger.Debug("notify: played", "sound", path)
}
