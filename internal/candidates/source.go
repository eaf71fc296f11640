package candidates

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jackpal/gateway"
	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

// Detector reports the local LAN address used to seed the LAN scan.
type Detector interface {
	LocalIP(ctx context.Context) (net.IP, error)
}

type DetectorFunc func(ctx context.Context) (net.IP, error)

func (f DetectorFunc) LocalIP(ctx context.Context) (net.IP, error) { return f(ctx) }

// Source builds candidates for each resolution cycle, filling in the LAN IP
// and the tunnel host at call time because both can change between cycles.
type Source struct {
	Env      Env
	Detector Detector
	Logger   *zap.Logger

	// NgrokAPI, when set and Env.TunnelHost is empty, is asked for the
	// current public tunnel each cycle.
	NgrokAPI string
	HTTP     *http.Client
}

func NewSource(env Env, d Detector, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{Env: env, Detector: d, Logger: logger}
}

func (s *Source) Candidates(ctx context.Context) []domain.Candidate {
	env := s.Env
	if env.TunnelHost == "" && s.NgrokAPI != "" {
		tctx, cancel := context.WithTimeout(ctx, detectTimeout)
		host, err := DetectNgrokHost(tctx, s.HTTP, s.NgrokAPI)
		cancel()
		if err != nil {
			s.Logger.Debug("ngrok_detect_failed", zap.Error(err))
		} else {
			env.TunnelHost = host
		}
	}
	if env.LANScan && env.LANIP == "" && s.Detector != nil {
		ip, err := s.Detector.LocalIP(ctx)
		if err != nil {
			s.Logger.Debug("lan_ip_detect_failed", zap.Error(err))
		} else {
			env.LANIP = ip.String()
		}
	}
	return Build(env)
}

var errNoLANAddress = errors.New("no private ipv4 address found")

const detectTimeout = 2 * time.Second

// DetectLocalIP returns the private IPv4 of the default-route interface,
// falling back to the first private address on any up interface.
func DetectLocalIP(ctx context.Context) (net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	ch := make(chan net.IP, 1)
	go func() {
		ip, err := gateway.DiscoverInterface()
		if err != nil {
			ch <- nil
			return
		}
		ch <- ip
	}()

	select {
	case ip := <-ch:
		if v4 := ip.To4(); v4 != nil && v4.IsPrivate() {
			return v4, nil
		}
	case <-ctx.Done():
	}

	for _, ip := range interfaceIPv4s() {
		if ip.IsPrivate() {
			return ip, nil
		}
	}
	return nil, errNoLANAddress
}

func interfaceIPv4s() []net.IP {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return ips
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip := ipNet.IP.To4(); ip != nil {
				ips = append(ips, ip)
			}
		}
	}
	return ips
}
