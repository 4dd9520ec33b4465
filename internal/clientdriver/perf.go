package clientdriver

import "time"

// PerformanceMonitor times a single upload or download phase and derives
// throughput once the phase is marked done.
type PerformanceMonitor struct {
	start     time.Time
	end       time.Time
	bytesSeen int64
}

// NewPerformanceMonitor starts timing immediately.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{start: time.Now()}
}

// Record adds n bytes to the running total for this phase.
func (p *PerformanceMonitor) Record(n int) {
	p.bytesSeen += int64(n)
}

// Finish stops the clock and returns the resulting report.
func (p *PerformanceMonitor) Finish() PerformanceReport {
	p.end = time.Now()
	return PerformanceReport{
		Bytes:    p.bytesSeen,
		Duration: p.end.Sub(p.start),
	}
}

// PerformanceReport summarizes one completed phase.
type PerformanceReport struct {
	Bytes    int64
	Duration time.Duration
}

// Mbps returns throughput in megabits per second. Zero duration reports
// zero rather than dividing by zero.
func (r PerformanceReport) Mbps() float64 {
	seconds := r.Duration.Seconds()
	if seconds <= 0 {
		return 0
	}
	bits := float64(r.Bytes) * 8
	return bits / seconds / 1_000_000
}
