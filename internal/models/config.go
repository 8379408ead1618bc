package models

// APIConfig holds service endpoints and credentials. Every field is optional.
type APIConfig struct {
	OpenAIBaseURL          string `json:"openai_base_url,omitempty"`
	OpenAIAPIKey           string `json:"openai_api_key,omitempty"`
	OpenAIModel            string `json:"openai_model,omitempty"`
	XunfeiAppID            string `json:"xunfei_app_id,omitempty"`
	XunfeiAPIKey           string `json:"xunfei_api_key,omitempty"`
	XunfeiAPISecret        string `json:"xunfei_api_secret,omitempty"`
	AmapKey                string `json:"amap_key,omitempty"`
	SupabaseURL            string `json:"supabase_url,omitempty"`
	SupabaseAnonKey        string `json:"supabase_anon_key,omitempty"`
	SupabaseServiceRoleKey string `json:"supabase_service_role_key,omitempty"`
	SyncAPIBase            string `json:"sync_api_base,omitempty"`
	SyncAPIKey             string `json:"sync_api_key,omitempty"`
	PostgresURL            string `json:"postgres_url,omitempty"`
}

// Merge returns c with every non-empty field of over applied on top.
func (c APIConfig) Merge(over APIConfig) APIConfig {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}
	return APIConfig{
		OpenAIBaseURL:          pick(c.OpenAIBaseURL, over.OpenAIBaseURL),
		OpenAIAPIKey:           pick(c.OpenAIAPIKey, over.OpenAIAPIKey),
		OpenAIModel:            pick(c.OpenAIModel, over.OpenAIModel),
		XunfeiAppID:            pick(c.XunfeiAppID, over.XunfeiAppID),
		XunfeiAPIKey:           pick(c.XunfeiAPIKey, over.XunfeiAPIKey),
		XunfeiAPISecret:        pick(c.XunfeiAPISecret, over.XunfeiAPISecret),
		AmapKey:                pick(c.AmapKey, over.AmapKey),
		SupabaseURL:            pick(c.SupabaseURL, over.SupabaseURL),
		SupabaseAnonKey:        pick(c.SupabaseAnonKey, over.SupabaseAnonKey),
		SupabaseServiceRoleKey: pick(c.SupabaseServiceRoleKey, over.SupabaseServiceRoleKey),
		SyncAPIBase:            pick(c.SyncAPIBase, over.SyncAPIBase),
		SyncAPIKey:             pick(c.SyncAPIKey, over.SyncAPIKey),
		PostgresURL:            pick(c.PostgresURL, over.PostgresURL),
	}
}

// Fields exposes the config as an ordered list of key/pointer pairs, used by
// the config commands to get and set values by their JSON name.
func (c *APIConfig) Fields() []ConfigField {
	return []ConfigField{
		{"openai_base_url", &c.OpenAIBaseURL, false},
		{"openai_api_key", &c.OpenAIAPIKey, true},
		{"openai_model", &c.OpenAIModel, false},
		{"xunfei_app_id", &c.XunfeiAppID, false},
		{"xunfei_api_key", &c.XunfeiAPIKey, true},
		{"xunfei_api_secret", &c.XunfeiAPISecret, true},
		{"amap_key", &c.AmapKey, true},
		{"supabase_url", &c.SupabaseURL, false},
		{"supabase_anon_key", &c.SupabaseAnonKey, true},
		{"supabase_service_role_key", &c.SupabaseServiceRoleKey, true},
		{"sync_api_base", &c.SyncAPIBase, false},
		{"sync_api_key", &c.SyncAPIKey, true},
		{"postgres_url", &c.PostgresURL, false},
	}
}

// Field looks up a field by its JSON name.
func (c *APIConfig) Field(name string) (ConfigField, bool) {
	for _, f := range c.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return ConfigField{}, false
}

// ConfigField is a named, addressable APIConfig field.
type ConfigField struct {
	Name   string
	Value  *string
	Secret bool
}
