package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/cdp"
	"github.com/cdpops/segment-copier/internal/copy"
	"github.com/cdpops/segment-copier/internal/models"
)

// StartCopy launches an async copy run and returns the job id. Progress is
// available on the job's event stream.
func (s *Server) StartCopy(w http.ResponseWriter, r *http.Request) {
	var req models.CopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.Jobs.Create("segment-copy")
	ctx, cancel := context.WithCancel(context.Background())
	job.SetCancel(cancel)

	params := copy.Params{
		SrcParent:      req.MasterSegmentID,
		SrcKey:         req.APIKey,
		DstParent:      req.OutputMasterSegmentID,
		DstName:        req.MasterSegmentName,
		DstKey:         req.APIKeyOutput,
		Instance:       req.Instance,
		CopyAssets:     req.CopyAssets,
		CopyDataAssets: req.CopyDataAssets,
	}

	go func() {
		defer cancel()
		err := s.Runner.Run(ctx, params, job.AppendEvent)
		if err != nil {
			s.Logger.Error("copy run failed", zap.String("job", job.ID), zap.Error(err))
			job.AppendEvent(models.ErrorEvent("Copy failed: %v", err))
			job.Fail(err.Error())
			return
		}
		job.Complete()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// ListRegions returns the instance selectors the form offers.
func (s *Server) ListRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"regions": cdp.RegionNames()})
}
