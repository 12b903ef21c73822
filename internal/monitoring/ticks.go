// Package monitoring watches how long battle ticks take against the
// real-time budget of the tick rate.
package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/events"
)

const recentWindow = 256

// TickMonitor is an event subscriber that tracks tick processing times.
// Ticks slower than the budget are counted and reported, at most once per
// alert cooldown.
type TickMonitor struct {
	mu            sync.RWMutex
	id            string
	logger        zerolog.Logger
	budget        time.Duration
	alertCooldown int // ticks between slow-tick warnings
	lastAlertTick int
	ticks         int
	slow          int
	total         time.Duration
	max           time.Duration
	last          time.Duration
	recent        []time.Duration // ring of the latest durations
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewTickMonitor creates a monitor for a battle running at tickRate ticks
// per second.
func NewTickMonitor(battleID string, tickRate int, logger zerolog.Logger) *TickMonitor {
	budget := time.Second
	if tickRate > 0 {
		budget = time.Second / time.Duration(tickRate)
	}
	return &TickMonitor{
		id:            "tick-monitor-" + battleID,
		logger:        logger.With().Str("component", "TickMonitor").Str("battle_id", battleID).Logger(),
		budget:        budget,
		alertCooldown: 100,
		lastAlertTick: -1,
		recent:        make([]time.Duration, 0, recentWindow),
		stopChan:      make(chan struct{}),
	}
}

// SetAlertCooldown sets how many ticks must pass between slow-tick warnings.
func (tm *TickMonitor) SetAlertCooldown(ticks int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.alertCooldown = max(ticks, 0)
}

func (tm *TickMonitor) ID() string {
	return tm.id
}

func (tm *TickMonitor) InterestedIn(eventType string) bool {
	return eventType == events.TypeTickEnded
}

func (tm *TickMonitor) HandleEvent(e events.Event) {
	ev, ok := e.(*events.TickEndedEvent)
	if !ok {
		return
	}
	tm.Record(ev.Tick, ev.ProcessedTime)
}

// Record adds one tick's processing time.
func (tm *TickMonitor) Record(tick int, d time.Duration) {
	tm.mu.Lock()
	tm.ticks++
	tm.total += d
	tm.last = d
	if d > tm.max {
		tm.max = d
	}
	if len(tm.recent) < recentWindow {
		tm.recent = append(tm.recent, d)
	} else {
		tm.recent[(tm.ticks-1)%recentWindow] = d
	}

	slow := d > tm.budget
	shouldAlert := false
	if slow {
		tm.slow++
		shouldAlert = tm.lastAlertTick < 0 || tick-tm.lastAlertTick >= tm.alertCooldown
		if shouldAlert {
			tm.lastAlertTick = tick
		}
	}
	slowCount := tm.slow
	tm.mu.Unlock()

	if shouldAlert {
		tm.logger.Warn().
			Int("tick", tick).
			Dur("processed", d).
			Dur("budget", tm.budget).
			Int("slow_ticks", slowCount).
			Msg("Tick exceeded real-time budget")
	}
}

// Start logs the metrics every interval until Stop is called.
func (tm *TickMonitor) Start(interval time.Duration) {
	go tm.monitor(interval)
	tm.logger.Debug().Dur("budget", tm.budget).Msg("Started tick monitoring")
}

// Stop ends the periodic report. It is safe to call more than once.
func (tm *TickMonitor) Stop() {
	tm.stopOnce.Do(func() { close(tm.stopChan) })
}

func (tm *TickMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.Report()
		case <-tm.stopChan:
			return
		}
	}
}

// Report logs the current metrics at debug level.
func (tm *TickMonitor) Report() {
	m := tm.GetMetrics()
	tm.logger.Debug().
		Int("ticks", m.Ticks).
		Int("slow", m.Slow).
		Dur("mean", m.Mean).
		Dur("p95", m.P95).
		Dur("max", m.Max).
		Msg("Tick metrics")
}

// GetMetrics returns a copy of the current statistics.
func (tm *TickMonitor) GetMetrics() TickMetrics {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	m := TickMetrics{
		Ticks:  tm.ticks,
		Slow:   tm.slow,
		Max:    tm.max,
		Last:   tm.last,
		Budget: tm.budget,
	}
	if tm.ticks > 0 {
		m.Mean = tm.total / time.Duration(tm.ticks)
	}
	m.P95 = percentile(tm.recent, 0.95)
	return m
}

// TickMetrics contains tick timing statistics. P95 covers the most recent
// ticks only.
type TickMetrics struct {
	Ticks  int           `json:"ticks"`
	Slow   int           `json:"slow"`
	Mean   time.Duration `json:"mean"`
	P95    time.Duration `json:"p95"`
	Max    time.Duration `json:"max"`
	Last   time.Duration `json:"last"`
	Budget time.Duration `json:"budget"`
}

// SlowRatio is the fraction of ticks over budget.
func (m TickMetrics) SlowRatio() float64 {
	if m.Ticks == 0 {
		return 0
	}
	return float64(m.Slow) / float64(m.Ticks)
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
