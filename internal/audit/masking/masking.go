package masking

import "strings"

const maskToken = "****"

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return maskToken
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskMetadata returns a copy of the input with values under email-like keys masked.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if strings.Contains(strings.ToLower(key), "email") {
			out[key] = maskValue(value)
			continue
		}
		out[key] = value
	}
	return out
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskEmail(cast)
	case []string:
		masked := make([]string, 0, len(cast))
		for _, item := range cast {
			masked = append(masked, MaskEmail(item))
		}
		return masked
	case []any:
		masked := make([]any, 0, len(cast))
		for _, item := range cast {
			masked = append(masked, maskValue(item))
		}
		return masked
	default:
		return value
	}
}
