package models

import "testing"

func validRequest() CopyRequest {
	return CopyRequest{
		MasterSegmentID:       "100",
		APIKey:                "src-key",
		Instance:              "US",
		OutputMasterSegmentID: "200",
		MasterSegmentName:     "Staging",
		APIKeyOutput:          "dst-key",
		CopyAssets:            true,
	}
}

func TestCopyRequest_Validate(t *testing.T) {
	if err := validRequest().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	blankers := []func(*CopyRequest){
		func(r *CopyRequest) { r.MasterSegmentID = "" },
		func(r *CopyRequest) { r.APIKey = "" },
		func(r *CopyRequest) { r.OutputMasterSegmentID = "" },
		func(r *CopyRequest) { r.MasterSegmentName = "" },
		func(r *CopyRequest) { r.APIKeyOutput = "" },
	}
	for i, blank := range blankers {
		r := validRequest()
		blank(&r)
		if err := r.Validate(); err == nil {
			t.Errorf("case %d: missing field accepted", i)
		}
	}

	// Unknown instances are allowed; they fall back to US downstream.
	r := validRequest()
	r.Instance = ""
	if err := r.Validate(); err != nil {
		t.Errorf("empty instance rejected: %v", err)
	}
}
