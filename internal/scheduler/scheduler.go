package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/notifier"
	"github.com/BuyBio/BuyBio/internal/recorder"
	"github.com/BuyBio/BuyBio/internal/screener"
)

// ErrRunning is returned when a screening run is already in progress.
var ErrRunning = errors.New("screening already running")

// analyzeTimeout bounds a single /analyze command.
const analyzeTimeout = 30 * time.Second

// Notifier delivers formatted reports.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the screening cron task and bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Screener  *screener.Screener
	Collector screener.Collector
	Notifier  Notifier // nil logs reports instead
	Recorder  recorder.Recorder
	Watchlist []model.Instrument
	Options   screener.Options
	Ctx       context.Context

	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc *screener.Screener, col screener.Collector, n Notifier, rec recorder.Recorder, watchlist []model.Instrument, opts screener.Options) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Screener:  sc,
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Watchlist: watchlist,
		Options:   opts,
		Ctx:       ctx,
	}
}

// Register adds the screening task on the given cron spec (with seconds).
func (s *Scheduler) Register(screenCron string) error {
	if _, err := s.Cron.AddFunc(screenCron, s.screenTask); err != nil {
		return fmt.Errorf("register screen task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow screens the watchlist immediately, records the report and sends the
// summary. Only one run executes at a time.
func (s *Scheduler) RunNow() (*screener.Report, error) {
	if !s.running.TryLock() {
		return nil, ErrRunning
	}
	defer s.running.Unlock()

	report, err := s.Screener.Run(s.Ctx, s.Watchlist)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordRun(report); err != nil {
		log.Printf("[ERROR] record screening run: %v", err)
	}
	s.trySend(s.Summary(report, s.Options.TopK))
	return report, nil
}

func (s *Scheduler) screenTask() {
	log.Println("[INFO] running screening task")
	if _, err := s.RunNow(); err != nil {
		log.Printf("[ERROR] screening task: %v", err)
		if !errors.Is(err, ErrRunning) {
			s.trySend(fmt.Sprintf("❌ 스크리닝 실패: %v", err))
		}
	}
}

// Summary formats the top k picks and keyword sections of a report.
func (s *Scheduler) Summary(report *screener.Report, k int) string {
	return notifier.FormatScreenReport(report, s.Options.Top(report, k), s.Options.Sections(report, nil))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/top":
		k := s.Options.TopK
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return "사용법: /top [N]"
			}
			k = n
		}
		latest := s.Screener.Latest()
		if latest == nil {
			return "아직 스크리닝 결과가 없습니다. /screen 으로 실행하세요."
		}
		return s.Summary(latest, k)
	case "/analyze":
		if len(args) == 0 {
			return "사용법: /analyze 종목코드"
		}
		return s.analyze(args[0])
	case "/screen":
		if !s.running.TryLock() {
			return "이미 스크리닝이 진행 중입니다."
		}
		s.running.Unlock()
		go s.screenTask()
		return "🔄 스크리닝을 시작합니다."
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) analyze(code string) string {
	inst := model.Instrument{Code: code}
	for _, w := range s.Watchlist {
		if w.Code == code {
			inst = w
			break
		}
	}
	ctx, cancel := context.WithTimeout(s.Ctx, analyzeTimeout)
	defer cancel()

	cand, err := s.Collector.Collect(ctx, inst)
	if err != nil {
		log.Printf("[WARN] analyze %s: %v", code, err)
		return fmt.Sprintf("❌ %s 분석 실패: %v", inst.Label(), err)
	}
	return notifier.FormatCandidate(cand)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Printf("[INFO] notification (telegram disabled):\n%s", text)
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
