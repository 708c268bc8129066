// Package discovery resolves a server URI to an endpoint description.
// The default implementation parses a static XML discovery document the
// way the teacher's NETCONF session parses its peer's <hello>
// capabilities exchange, using antchfx/xmlquery for the DOM and
// antchfx/xpath for compiled, reusable node selectors.
package discovery

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/opcua-go/sessionfactory/internal/domain"
)

var (
	xpServer   = xpath.MustCompile("//server")
	xpEndpoint = xpath.MustCompile("./endpoint")
)

// Document resolves server URIs against endpoints read from an XML
// discovery document of the shape:
//
//	<servers>
//	  <server uri="urn:example:server1">
//	    <endpoint url="opc.tcp://host1:4840" securityPolicy="Basic256Sha256"/>
//	  </server>
//	</servers>
//
// A server URI absent from the document is reported by Resolve as a
// discovery miss. A document that fails to parse yields an error from
// Parse (or Refresh, which then keeps the current table), not a Document.
type Document struct {
	mu        sync.RWMutex
	endpoints map[string]domain.EndpointDescription
}

// Parse reads and indexes a discovery document from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing discovery document: %w", err)
	}

	endpoints := make(map[string]domain.EndpointDescription)
	for _, server := range xmlquery.QuerySelectorAll(doc, xpServer) {
		uri := strings.TrimSpace(server.SelectAttr("uri"))
		if uri == "" {
			continue
		}
		endpoint := domain.EndpointDescription{ServerURI: uri}
		if ep := xmlquery.QuerySelector(server, xpEndpoint); ep != nil {
			endpoint.EndpointURL = strings.TrimSpace(ep.SelectAttr("url"))
			endpoint.SecurityPolicy = strings.TrimSpace(ep.SelectAttr("securityPolicy"))
		}
		endpoints[uri] = endpoint
	}

	return &Document{endpoints: endpoints}, nil
}

// Resolve implements domain.Discoverer.
func (d *Document) Resolve(ctx context.Context, serverURI string) (domain.EndpointDescription, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ep, ok := d.endpoints[serverURI]
	if !ok {
		return domain.EndpointDescription{}, domain.NewDiscoveryMissError(serverURI)
	}
	return ep, nil
}

// Refresh re-indexes the document from r, replacing the current endpoint
// table atomically. Discovery documents are expected to be refreshed
// periodically out-of-band (e.g. alongside the Housekeeper's cadence);
// the factory itself never triggers a refresh.
func (d *Document) Refresh(r io.Reader) error {
	fresh, err := Parse(r)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.endpoints = fresh.endpoints
	d.mu.Unlock()
	return nil
}

// Static is an in-memory Discoverer for tests and demos that never needs
// to parse a document.
type Static struct {
	mu        sync.RWMutex
	endpoints map[string]domain.EndpointDescription
}

// NewStatic builds a Static discoverer pre-populated with the given
// server URIs, using a synthesized endpoint for each.
func NewStatic(serverURIs ...string) *Static {
	s := &Static{endpoints: make(map[string]domain.EndpointDescription)}
	for _, uri := range serverURIs {
		s.endpoints[uri] = domain.EndpointDescription{ServerURI: uri, EndpointURL: "opc.tcp://" + uri}
	}
	return s
}

// Add registers or replaces an endpoint for serverURI.
func (s *Static) Add(endpoint domain.EndpointDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[endpoint.ServerURI] = endpoint
}

// Resolve implements domain.Discoverer.
func (s *Static) Resolve(ctx context.Context, serverURI string) (domain.EndpointDescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[serverURI]
	if !ok {
		return domain.EndpointDescription{}, domain.NewDiscoveryMissError(serverURI)
	}
	return ep, nil
}
