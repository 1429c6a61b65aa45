package api

import (
	"archive/zip"
	"net/http"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/events"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/pdf"
)

// PartSplitter extracts per-part files from a score book.
type PartSplitter interface {
	NormalizeOrientation(doc []byte) ([]byte, bool, error)
	Split(doc []byte, parts []core.InstrumentPart) ([]pdf.SplitFile, error)
}

// handleSplit runs the consensus analysis and returns the extracted
// parts as a zip archive. Page orientation is normalized before
// analysis so rotated scans do not skew the predictions.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	replicates, err := parseReplicates(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	svc, err := s.factory(replicates)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	jobID := uuid.NewString()
	s.publish(events.NewAnalysisStartedEvent(jobID, replicates))

	doc, url, err := s.document(r)
	if err == nil && url != "" {
		doc, err = s.retriever.FromURL(r.Context(), url)
	}
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	if normalized, changed, err := s.splitter.NormalizeOrientation(doc); err == nil && changed {
		doc = normalized
	}

	analysis, err := svc.AnalyzeScore(r.Context(), doc, s.progressFunc(jobID))
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	files, err := s.splitter.Split(doc, analysis.Parts)
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}
	if len(files) == 0 {
		err := core.ErrAnalysis(core.CodeAnalysisFailed, "no instrument parts detected")
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	s.publish(events.NewAnalysisCompletedEvent(jobID, analysis.Parts))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="parts.zip"`)
	w.Header().Set("X-Job-Id", jobID)

	zw := zip.NewWriter(w)
	for _, f := range files {
		s.publish(events.NewPartExtractedEvent(jobID, f.Part, f.Filename))
		entry, err := zw.Create(f.Filename)
		if err != nil {
			s.logger.Error("creating zip entry", "filename", f.Filename, "error", err)
			return
		}
		if _, err := entry.Write(f.Content); err != nil {
			s.logger.Error("writing zip entry", "filename", f.Filename, "error", err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.logger.Error("closing zip archive", "error", err)
	}
}
