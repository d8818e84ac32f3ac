// Package session holds the state of one interactive session and the
// controller that runs user actions against it.
package session

import (
	"fmt"
	"strings"

	"xplore/internal/config"
	"xplore/internal/form"
	"xplore/internal/model"
)

// Session is everything the user selected: service, base URL, auth and
// partition, plus the values typed into endpoint forms. Components receive
// the parts they need from it; nothing reads it implicitly.
type Session struct {
	Service  string
	Services []config.Service
	SpecFile string

	BaseURL  string
	BaseURLs []string

	Auth model.AuthConfig

	Partition  string
	Partitions []string

	Forms *form.Store
}

func New(cfg *config.Config) *Session {
	s := &Session{
		Service:    cfg.Service,
		Services:   append([]config.Service(nil), cfg.Services...),
		SpecFile:   cfg.SpecFile,
		BaseURLs:   append([]string(nil), cfg.BaseURLs...),
		Auth:       cfg.Auth.Model(),
		Partitions: append([]string(nil), cfg.Partitions...),
		Forms:      form.NewStore(),
	}
	s.UseBaseURL(cfg.BaseURL)
	s.UsePartition(cfg.Partition)
	return s
}

// UseBaseURL selects u, appending it to the option list on first use.
func (s *Session) UseBaseURL(u string) {
	u = strings.TrimSpace(u)
	if u == "" {
		return
	}
	s.BaseURL = u
	s.BaseURLs = appendOnce(s.BaseURLs, u)
}

// OfferBaseURL adds u to the base URL options without selecting it.
func (s *Session) OfferBaseURL(u string) {
	if u = strings.TrimSpace(u); u != "" {
		s.BaseURLs = appendOnce(s.BaseURLs, u)
	}
}

// UsePartition selects p, appending it to the option list on first use.
func (s *Session) UsePartition(p string) {
	p = strings.TrimSpace(p)
	if p == "" {
		return
	}
	s.Partition = p
	s.Partitions = appendOnce(s.Partitions, p)
}

// UseService switches the active service. Form values belong to the old
// catalogue and are dropped.
func (s *Session) UseService(name string) error {
	if _, ok := s.lookup(name); !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	if name != s.Service {
		s.Service = name
		s.Forms.Reset()
	}
	return nil
}

// ActiveService returns the catalogue entry of the selected service.
func (s *Session) ActiveService() (config.Service, bool) {
	return s.lookup(s.Service)
}

// PartitionFor resolves the partition for one request: the endpoint's own
// override if set, the session partition otherwise.
func (s *Session) PartitionFor(st *form.State) string {
	if st != nil && st.Partition != "" {
		return st.Partition
	}
	return s.Partition
}

func (s *Session) lookup(name string) (config.Service, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return config.Service{}, false
}

func appendOnce(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
