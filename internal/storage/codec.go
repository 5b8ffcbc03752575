package storage

import (
	"encoding/json"
	"errors"

	"epigonos/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeDynamicOperator(record model.DynamicOperatorRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeDynamicOperator(data []byte) (model.DynamicOperatorRecord, error) {
	var record model.DynamicOperatorRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.DynamicOperatorRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.DynamicOperatorRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
