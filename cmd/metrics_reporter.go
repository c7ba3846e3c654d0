package cmd

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

// metricsFlushInterval is long enough that a CLI run only reports when the
// scope is closed.
const metricsFlushInterval = time.Hour

// logReporter is a tally.StatsReporter that writes every reported value as a
// structured logrus entry.
type logReporter struct {
	log logrus.FieldLogger
}

type logCapabilities struct{}

func (logCapabilities) Reporting() bool { return true }
func (logCapabilities) Tagging() bool   { return true }

// newLogScope returns a root scope reporting through log. The CLI passes its
// own logger so counters are printed regardless of --log. Close the returned
// closer to flush the final values.
func newLogScope(prefix string, log logrus.FieldLogger) (tally.Scope, io.Closer) {
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:    prefix,
		Separator: ".",
		Reporter:  &logReporter{log: log},
	}, metricsFlushInterval)
}

func (r *logReporter) fields(name string, tags map[string]string) logrus.Fields {
	f := logrus.Fields{"metric": name}
	for k, v := range tags {
		f[k] = v
	}
	return f
}

func (r *logReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.log.WithFields(r.fields(name, tags)).WithField("value", value).Info("counter")
}

func (r *logReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.log.WithFields(r.fields(name, tags)).WithField("value", value).Info("gauge")
}

func (r *logReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.log.WithFields(r.fields(name, tags)).WithField("value", interval).Info("timer")
}

func (r *logReporter) ReportHistogramValueSamples(name string, tags map[string]string, _ tally.Buckets,
	bucketLowerBound, bucketUpperBound float64, samples int64) {
	r.log.WithFields(r.fields(name, tags)).WithFields(logrus.Fields{
		"lower": bucketLowerBound, "upper": bucketUpperBound, "samples": samples,
	}).Info("histogram")
}

func (r *logReporter) ReportHistogramDurationSamples(name string, tags map[string]string, _ tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration, samples int64) {
	r.log.WithFields(r.fields(name, tags)).WithFields(logrus.Fields{
		"lower": bucketLowerBound, "upper": bucketUpperBound, "samples": samples,
	}).Info("histogram")
}

func (r *logReporter) Capabilities() tally.Capabilities {
	return logCapabilities{}
}

func (r *logReporter) Flush() {}
