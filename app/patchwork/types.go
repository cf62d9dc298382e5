package patchwork

// Wire shapes of the upstream patch feed. Integer ids stay integers here;
// the mapper normalizes them to strings.

type Person struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Series struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type Patch struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Date      string   `json:"date"`
	Submitter *Person  `json:"submitter"`
	Series    []Series `json:"series"`
	MsgID     string   `json:"msgid"`
	URL       string   `json:"url"`
	WebURL    string   `json:"web_url"`
	Mbox      string   `json:"mbox"`
	State     string   `json:"state"`
	Hash      string   `json:"hash"`
	Content   string   `json:"content"`
}

// PatchList is one page of the paginated feed. A nil Next signals the last
// page.
type PatchList struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []Patch `json:"results"`
}
