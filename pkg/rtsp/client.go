package rtsp

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Probe checks that an RTSP endpoint is reachable before the heavier
// video capture machinery is spun up against it. A failed probe gives a
// much clearer error than whatever the capture backend reports.
type Probe struct {
	target  string
	address string
}

func NewProbe(target string) (*Probe, error) {
	p := Probe{target: target}
	if err := p.validateAndProcessAddr(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Probe) validateAndProcessAddr() error {
	parsedURL, err := url.Parse(p.target)
	if err != nil {
		return err
	}

	if s := parsedURL.Scheme; s != "rtsp" {
		return fmt.Errorf("unsupported scheme: %s ('rtsp' is the only supported scheme)", s)
	}

	p.address = parsedURL.Host
	if !strings.Contains(p.address, ":") {
		p.address += ":554"
	}

	return nil
}

// Addr is the host:port the probe dials, with the default RTSP port
// filled in when the stream URL omitted one.
func (p *Probe) Addr() string {
	return p.address
}

// Check dials the stream host and issues a bare OPTIONS request, which
// RTSP servers answer regardless of stream state.
func (p *Probe) Check(cancel context.Context) error {
	var d net.Dialer
	ctx, ccancel := context.WithTimeout(cancel, time.Minute)
	defer ccancel()

	conn, err := d.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}

	request := fmt.Sprintf("OPTIONS %s RTSP/1.0\r\nCSeq: 1\r\n\r\n", p.target)
	if _, err := conn.Write([]byte(request)); err != nil {
		return err
	}

	response := make([]byte, 512)
	read, err := conn.Read(response)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(string(response[:read]), "RTSP/1.0") {
		return fmt.Errorf("endpoint %s did not answer with an RTSP response", p.address)
	}

	return nil
}
