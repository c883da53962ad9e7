package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetClientIP determines the actual client IP address considering proxies and dual stack
// Returns both IPv4 and IPv6 addresses if available
func GetClientIP(c *fiber.Ctx) (string, string) {
	ipv4 := ""
	ipv6 := ""

	// Cloudflare provides the original client IP
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		wantIPv6 := !strings.Contains(cfIP, ":")
		if wantIPv6 {
			ipv4 = cfIP
		} else {
			ipv6 = cfIP
		}
		for _, ip := range strings.Split(c.Get("X-Forwarded-For"), ",") {
			ip = strings.TrimSpace(ip)
			if ip == "" || strings.Contains(ip, ":") != wantIPv6 {
				continue
			}
			if wantIPv6 {
				ipv6 = ip
			} else {
				ipv4 = ip
			}
			break
		}
		return ipv4, ipv6
	}

	// X-Forwarded-For: the first entry is the original client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			switch {
			case ip == "":
			case strings.Contains(ip, ":"):
				if ipv6 == "" {
					ipv6 = ip
				}
			default:
				if ipv4 == "" {
					ipv4 = ip
				}
			}
		}
		if ipv4 != "" || ipv6 != "" {
			return ipv4, ipv6
		}
	}

	ipAddr := c.IP()
	realIP := c.Get("X-Real-IP")
	switch {
	case strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, "."):
		// IPv4 mapped into IPv6
		ipv4 = strings.TrimPrefix(ipAddr, "::ffff:")
		if strings.Contains(realIP, ":") {
			ipv6 = realIP
		}
	case strings.Contains(ipAddr, ":"):
		ipv6 = ipAddr
		if realIP != "" && !strings.Contains(realIP, ":") {
			ipv4 = realIP
		}
	default:
		ipv4 = ipAddr
		if strings.Contains(realIP, ":") {
			ipv6 = realIP
		}
	}

	return ipv4, ipv6
}

// ClientKey is the rate limiter key for a request: the client IPv4, else IPv6.
func ClientKey(c *fiber.Ctx) string {
	ipv4, ipv6 := GetClientIP(c)
	if ipv4 != "" {
		return ipv4
	}
	return ipv6
}
