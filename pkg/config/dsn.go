package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultPostgresPort = 5432
	defaultSSLMode      = "disable"
)

// ConnParams are the pieces of a PostgreSQL connection, read either from a
// connection URL or from the individual database settings.
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Options  map[string]string
}

// ParseDatabaseURL reads postgres:// and postgresql:// URLs. Missing port and
// sslmode fall back to 5432 and disable.
func ParseDatabaseURL(rawURL string) (*ConnParams, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid database URL scheme %q", u.Scheme)
	}

	p := &ConnParams{
		Host:     u.Hostname(),
		Port:     defaultPostgresPort,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  defaultSSLMode,
		Options:  map[string]string{},
	}
	if port := u.Port(); port != "" {
		if p.Port, err = strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid port in database URL: %w", err)
		}
	}
	if u.User != nil {
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		if key == "sslmode" {
			if values[0] != "" {
				p.SSLMode = values[0]
			}
			continue
		}
		p.Options[key] = values[0]
	}
	return p, nil
}

// DSN renders the params as a libpq keyword/value string. Options follow
// the fixed keys in name order.
func (p *ConnParams) DSN() string {
	pairs := []string{
		"host=" + dsnValue(p.Host),
		"port=" + strconv.Itoa(p.Port),
		"user=" + dsnValue(p.User),
		"password=" + dsnValue(p.Password),
		"dbname=" + dsnValue(p.Database),
		"sslmode=" + dsnValue(p.sslMode()),
	}

	keys := make([]string, 0, len(p.Options))
	for key := range p.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pairs = append(pairs, key+"="+dsnValue(p.Options[key]))
	}
	return strings.Join(pairs, " ")
}

// URL renders the params as a postgres:// URL with escaped credentials
func (p *ConnParams) URL() string {
	query := url.Values{}
	for key, value := range p.Options {
		query.Set(key, value)
	}
	query.Set("sslmode", p.sslMode())

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (p *ConnParams) sslMode() string {
	if p.SSLMode == "" {
		return defaultSSLMode
	}
	return p.SSLMode
}

// dsnValue quotes empty values and values libpq would otherwise split
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
