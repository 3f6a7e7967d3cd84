package pageuser

// User is an account that owns saved configurations and generated
// templates. The password hash never leaves the server.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Hashed    string `json:"-"`
	CreatedAt string `json:"created_at"`
}

// SiteConfigRecord is a saved site configuration: the raw JSON document a
// user builds in the editor, stored verbatim so exports can be re-run.
type SiteConfigRecord struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"-"`
	Name      string `json:"name"`
	Content   string `json:"-"` // raw JSON text, parsed on demand
	CreatedAt string `json:"created_at"`
}

// GeneratedTemplate is the metadata row for one export artifact: the ZIP
// on disk plus the configuration it was generated from.
type GeneratedTemplate struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"-"`
	Name           string `json:"name"`
	FilePath       string `json:"-"` // server-local path, never echoed in listings
	SourceConfigID int64  `json:"source_config_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// HistoryEntry is one line of a user's activity log.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"-"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
}
