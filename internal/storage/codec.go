package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

const CurrentSchemaVersion = 1

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrMissingReport   = errors.New("record has no report")
)

func EncodeRun(r RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (RunRecord, error) {
	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return RunRecord{}, err
	}
	if run.SchemaVersion != CurrentSchemaVersion {
		return RunRecord{}, fmt.Errorf("%w: schema=%d want %d", ErrVersionMismatch, run.SchemaVersion, CurrentSchemaVersion)
	}
	if run.Report == nil {
		return RunRecord{}, fmt.Errorf("%w: id=%s", ErrMissingReport, run.ID)
	}
	return run, nil
}
