package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// A field is applied when source.SetFields names it or, for fields
// SetFields does not mention, when it holds a non-zero value.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	if isSet(source, "port", source.Port != 0) {
		target.Port = source.Port
		target.Sources["port"] = sourceType
	}
	mergeString(target, source, sourceType, "mode", &target.Mode, source.Mode)
	mergeString(target, source, sourceType, "targetUrl", &target.TargetURL, source.TargetURL)
	mergeString(target, source, sourceType, "harFile", &target.HARFile, source.HARFile)
	mergeString(target, source, sourceType, "prefix", &target.Prefix, source.Prefix)
	mergeString(target, source, sourceType, "logLevel", &target.LogLevel, source.LogLevel)
	mergeString(target, source, sourceType, "logFormat", &target.LogFormat, source.LogFormat)
	mergeString(target, source, sourceType, "logFile", &target.LogFile, source.LogFile)
	mergeString(target, source, sourceType, "maxBodySize", &target.MaxBodySize, source.MaxBodySize)

	mergeList(target, source, sourceType, "includePaths", &target.IncludePaths, source.IncludePaths)
	mergeList(target, source, sourceType, "excludePaths", &target.ExcludePaths, source.ExcludePaths)
	mergeList(target, source, sourceType, "includeHosts", &target.IncludeHosts, source.IncludeHosts)
	mergeList(target, source, sourceType, "excludeHosts", &target.ExcludeHosts, source.ExcludeHosts)
	mergeList(target, source, sourceType, "redactHeaders", &target.RedactHeaders, source.RedactHeaders)
}

func mergeString(target, source *Config, sourceType, key string, dst *string, v string) {
	if isSet(source, key, v != "") {
		*dst = v
		target.Sources[key] = sourceType
	}
}

func mergeList(target, source *Config, sourceType, key string, dst *[]string, v []string) {
	if isSet(source, key, len(v) > 0) {
		*dst = append([]string(nil), v...)
		target.Sources[key] = sourceType
	}
}

// isSet reports whether the field identified by its YAML key was explicitly
// set in the source config. Keys absent from SetFields fall back to nonZero.
func isSet(cfg *Config, yamlKey string, nonZero bool) bool {
	if set, ok := cfg.SetFields[yamlKey]; ok {
		return set
	}
	return nonZero
}
