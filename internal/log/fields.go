// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID      = "run_id"
	FieldRequestID  = "request_id"
	FieldExperiment = "experiment"
	FieldRun        = "run"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Training fields
	FieldTarget    = "target"
	FieldMetric    = "metric"
	FieldObjective = "objective"
	FieldSeed      = "seed"

	// State fields
	FieldStatus    = "status"
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	// Path / source fields
	FieldPath       = "path"
	FieldConfigPath = "config_path"
	FieldDataSource = "data_source"
	FieldSaveDir    = "save_dir"
	FieldDBPath     = "db_path"

	// Network fields
	FieldAddr = "addr"
)
