package entity

// Server is the attributes block of a Pterodactyl application API server object.
type Server struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	UUID       string `json:"uuid"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Suspended  bool   `json:"suspended"`
	User       int64  `json:"user"`
}

type ServerObject struct {
	Object     string `json:"object"`
	Attributes Server `json:"attributes"`
}

type Pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// ServerList is both the /servers listing and a user's servers relationship.
type ServerList struct {
	Object string         `json:"object"`
	Data   []ServerObject `json:"data"`
	Meta   struct {
		Pagination Pagination `json:"pagination"`
	} `json:"meta"`
}

func (l ServerList) Servers() []Server {
	out := make([]Server, 0, len(l.Data))
	for _, obj := range l.Data {
		out = append(out, obj.Attributes)
	}
	return out
}

// UserObject is /api/application/users/{id}?include=servers.
type UserObject struct {
	Object     string `json:"object"`
	Attributes struct {
		ID            int64  `json:"id"`
		Username      string `json:"username"`
		Email         string `json:"email"`
		RootAdmin     bool   `json:"root_admin"`
		Relationships struct {
			Servers ServerList `json:"servers"`
		} `json:"relationships"`
	} `json:"attributes"`
}
