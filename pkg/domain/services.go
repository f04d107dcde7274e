package domain

// Service names one rococo business service. Each service owns exactly one
// logical database.
type Service string

// Known services.
const (
	ServiceArtists   Service = "artists"
	ServiceAuth      Service = "auth"
	ServiceCountries Service = "countries"
	ServiceFiles     Service = "files"
	ServiceMuseums   Service = "museums"
	ServicePaintings Service = "paintings"
	ServiceUsers     Service = "users"
)

// Services lists every service in a stable order.
func Services() []Service {
	return []Service{
		ServiceArtists,
		ServiceAuth,
		ServiceCountries,
		ServiceFiles,
		ServiceMuseums,
		ServicePaintings,
		ServiceUsers,
	}
}

// DatabaseName returns the database owned by the service, e.g. rococo-artists.
func (s Service) DatabaseName() string {
	return "rococo-" + string(s)
}

// Valid reports whether s is a known service.
func (s Service) Valid() bool {
	for _, known := range Services() {
		if s == known {
			return true
		}
	}
	return false
}
