package manifest

import "log/slog"

// supportedAttributes is the per-stage allow-list deciding which candidate
// fields make it into a rendered manifest, together with the fields a legacy
// job queue cannot accept.
type supportedAttributes struct {
	out              []string
	in               []string
	outLegacyExclude []string
	inLegacyExclude  []string

	// nativeOutRemove and nativeOutAdd adjust the output allow-list for
	// the native dialect: the flat legacy duplicates disappear and the
	// nested representation takes their place. Empty for artifacts whose
	// manifests have a single dialect.
	nativeOutRemove []string
	nativeOutAdd    []string
}

var tableAttributes = supportedAttributes{
	in: []string{
		"id",
		"uri",
		"name",
		"primary_key",
		"created",
		"last_change_date",
		"last_import_date",
		"columns",
		"metadata",
		"column_metadata",
		"rows_count",
		"data_size_bytes",
		"is_alias",
		"attributes",
		"indexed_columns",
	},
	out: []string{
		"destination",
		"columns",
		"incremental",
		"primary_key",
		"write_always",
		"delimiter",
		"enclosure",
		"metadata",
		"column_metadata",
		"delete_where_column",
		"delete_where_values",
		"delete_where_operator",
	},
	outLegacyExclude: []string{"write_always"},
	nativeOutRemove:  []string{"primary_key", "columns", "distribution_key", "column_metadata", "metadata"},
	nativeOutAdd:     []string{"manifest_type", "has_header", "description", "table_metadata", "schema"},
}

var fileAttributes = supportedAttributes{
	in: []string{
		"id",
		"created",
		"is_public",
		"is_encrypted",
		"name",
		"size_bytes",
		"tags",
		"notify",
		"max_age_days",
		"is_permanent",
	},
	out: []string{
		"tags",
		"is_public",
		"is_permanent",
		"is_encrypted",
		"notify",
	},
}

// byStage resolves the effective allow-list for a render call. When
// legacyQueue is set the per-stage exclusions are subtracted and a single
// warning names the dropped fields.
func (a supportedAttributes) byStage(stage Stage, legacyQueue, legacyManifest bool, logger *slog.Logger) []string {
	var attrs, exclude []string
	switch stage {
	case StageOut:
		attrs = a.out
		exclude = a.outLegacyExclude
		if !legacyManifest && len(a.nativeOutAdd) > 0 {
			attrs = subtract(attrs, a.nativeOutRemove)
			attrs = append(attrs, a.nativeOutAdd...)
		}
	case StageIn:
		attrs = a.in
		exclude = a.inLegacyExclude
	}

	if legacyQueue && len(exclude) > 0 {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("running on legacy queue, some manifest properties will be ignored",
			"excluded", exclude)
		attrs = subtract(attrs, exclude)
	}
	return attrs
}

func subtract(values, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[r] = struct{}{}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := drop[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
