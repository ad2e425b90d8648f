package natsrep

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/subseries/api"
)

// Publisher is the part of *nats.Conn the reporter needs.
type Publisher interface {
	Publish(subj string, data []byte) error
	Flush() error
}

var _ Publisher = (*nats.Conn)(nil)

type natsReporter struct {
	nc      Publisher
	subject string
	runUuid string
	log     *slog.Logger
}

// New creates a reporter that streams progress messages to the given subject.
func New(nc Publisher, subject string, runUuid string, log *slog.Logger) *natsReporter {
	return &natsReporter{
		nc:      nc,
		subject: subject,
		runUuid: runUuid,
		log:     log,
	}
}

// Connect dials a NATS server for use with New.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name("subseries"))
}

func (s *natsReporter) StartRun(info api.RunInfo) {
	s.send(api.NewStartRun(s.runUuid, info))
}

func (s *natsReporter) StartChunk(lo, hi int) {
	s.send(api.NewStartChunk(s.runUuid, lo, hi))
}

func (s *natsReporter) DropSubmission(drop api.Drop) {
	s.send(api.NewDropSubm(s.runUuid, drop))
}

func (s *natsReporter) FinishChunk(stats api.ChunkStats) {
	s.send(api.NewFinishChunk(s.runUuid, stats))
}

func (s *natsReporter) FinishRun(errIfAny error) {
	s.send(api.NewFinishRun(s.runUuid, errIfAny))
	if err := s.nc.Flush(); err != nil {
		s.log.Warn("failed to flush NATS connection", "error", err)
	}
}

func (s *natsReporter) send(msg interface{}) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to marshal message", "error", err)
		return
	}

	if err := s.nc.Publish(s.subject, b); err != nil {
		s.log.Warn("failed to publish message to NATS", "subject", s.subject, "error", err)
	}
}
