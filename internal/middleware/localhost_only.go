package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocalhostOnly restricts sensitive routes to localhost plus a configured
// IP whitelist (exact IPs or CIDR ranges).
type LocalhostOnly struct {
	logger     *logrus.Logger
	allowedIPs []string
}

func NewLocalhostOnly(logger *logrus.Logger, allowedIPs []string) *LocalhostOnly {
	return &LocalhostOnly{
		logger:     logger,
		allowedIPs: allowedIPs,
	}
}

// Restrict rejects requests from non-whitelisted addresses. ClientIP honors
// X-Forwarded-For only when the router configured trusted proxies.
func (l *LocalhostOnly) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)

		if !l.isAllowedIP(clientIP) {
			// A denied forwarded IP over a direct loopback connection means a
			// misconfigured proxy header, not a remote caller.
			if remoteIP != clientIP && isLocalhost(remoteIP) {
				l.logger.WithFields(logrus.Fields{
					"client_ip": clientIP,
					"remote_ip": remoteIP,
					"path":      c.Request.URL.Path,
				}).Warn("ClientIP denied but RemoteIP is localhost - allowing direct local connection")
			} else {
				l.logger.WithFields(logrus.Fields{
					"client_ip":  clientIP,
					"remote_ip":  remoteIP,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"user_agent": c.GetHeader("User-Agent"),
				}).Warn("Reject non-whitelisted access to sensitive API")

				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"error":   "This API is only accessible from allowed IP addresses",
					"code":    "IP_NOT_ALLOWED",
				})
				return
			}
		}

		c.Next()
	}
}

func isLocalhost(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return ip == "localhost"
	}
	return parsedIP.IsLoopback()
}

func (l *LocalhostOnly) isAllowedIP(ip string) bool {
	if isLocalhost(ip) {
		return true
	}
	if len(l.allowedIPs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		for _, allowed := range l.allowedIPs {
			if ip == strings.TrimSpace(allowed) {
				return true
			}
		}
		return false
	}

	for _, allowed := range l.allowedIPs {
		allowed = strings.TrimSpace(allowed)
		if strings.Contains(allowed, "/") {
			_, ipNet, err := net.ParseCIDR(allowed)
			if err != nil {
				l.logger.WithFields(logrus.Fields{
					"allowed": allowed,
					"error":   err.Error(),
				}).Warn("Invalid CIDR in allowedIPs")
				continue
			}
			if ipNet.Contains(parsedIP) {
				return true
			}
		} else if allowedIP := net.ParseIP(allowed); allowedIP != nil && allowedIP.Equal(parsedIP) {
			return true
		}
	}

	l.logger.WithFields(logrus.Fields{
		"ip":         ip,
		"allowedIPs": l.allowedIPs,
	}).Warn("❌ IP not found in whitelist - rejecting access")
	return false
}
