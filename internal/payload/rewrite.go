package payload

import (
	"errors"
	"net"
	"regexp"
	"strconv"
)

// ErrNoAssignment is returned when a script has no LOG_SERVER assignment to
// rewrite.
var ErrNoAssignment = errors.New("no LOG_SERVER assignment found")

var logServerAssignment = regexp.MustCompile(`LOG_SERVER\s*=\s*["'].*?["']`)

// RewriteLogServer points every LOG_SERVER assignment in script at url.
func RewriteLogServer(script []byte, url string) ([]byte, error) {
	if !logServerAssignment.Match(script) {
		return nil, ErrNoAssignment
	}
	repl := []byte("LOG_SERVER = " + strconv.Quote(url))
	return logServerAssignment.ReplaceAllLiteral(script, repl), nil
}

// LogServerURL builds the URL a device posts its lines to.
func LogServerURL(ip string, port int) string {
	return "http://" + net.JoinHostPort(ip, strconv.Itoa(port)) + "/log"
}

// LocalIP returns the address of the interface used for outbound traffic.
// No packet is sent; the UDP dial only selects a route.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
