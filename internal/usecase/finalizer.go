package usecase

import (
	"github.com/rs/zerolog"

	"voicecoach/internal/domain"
	"voicecoach/internal/ports"
	"voicecoach/internal/render"
)

type resultFinalizer struct {
	store  ports.ResultStore
	events ports.EventSink
	log    zerolog.Logger
}

func newResultFinalizer(store ports.ResultStore, events ports.EventSink, log zerolog.Logger) resultFinalizer {
	return resultFinalizer{store: store, events: events, log: log}
}

// Finalize persists the result for the feedback view and builds the plan.
// A storage failure is reported but does not fail the analysis.
func (f resultFinalizer) Finalize(result *domain.AnalysisResult) render.Plan {
	if f.store != nil {
		if err := f.store.SaveResult(result); err != nil {
			f.log.Error().Err(err).Msg("failed to store analysis result")
			f.events.SessionError(domain.ErrorCodeUpload, "analysis ready but could not be saved for the feedback view")
		}
	}
	return render.Build(result)
}
