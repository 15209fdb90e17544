package accounting

// MaskKey masks an api key for display by showing only the first and
// last 4 characters, with the middle replaced by asterisks.
//
// For keys shorter than 12 characters the whole key is redacted, since
// showing 8 of their characters would expose most of the secret.
//
// Example: "sk-abc123xyz789" -> "sk-a***z789"
//
// Returns an empty string if the api key is empty.
func MaskKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) < 12 {
		return "****"
	}
	return apiKey[:4] + "***" + apiKey[len(apiKey)-4:]
}
