package render

import "voicecoach/internal/domain"

// Source yields the analysis result a view renders.
type Source interface {
	Result() (*domain.AnalysisResult, bool, error)
}

// LiveSource reads the result held in memory by the running session.
type LiveSource func() *domain.AnalysisResult

func (f LiveSource) Result() (*domain.AnalysisResult, bool, error) {
	result := f()
	return result, result != nil, nil
}

// ResultLoader is the read side of the session result store.
type ResultLoader interface {
	LoadResult() (*domain.AnalysisResult, bool, error)
}

// StoredSource re-hydrates a result from session-scoped storage.
type StoredSource struct {
	Store ResultLoader
}

func (s StoredSource) Result() (*domain.AnalysisResult, bool, error) {
	if s.Store == nil {
		return nil, false, nil
	}
	return s.Store.LoadResult()
}

// Render builds the plan for whatever the source holds. The returned plan is
// always drawable; the error is only for diagnostics.
func Render(src Source) (Plan, error) {
	result, ok, err := src.Result()
	if err != nil || !ok {
		return NoResult(), err
	}
	return Build(result), nil
}
