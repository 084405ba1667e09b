// Package config handles input from etc/*.toml files
package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/GoLoginSystem/GoLoginSystem/internal/auth"
)

const (
	// EnvPrefix prefixes every environment override, e.g. LOGINSYSTEM_WEBSERVER_PORT.
	EnvPrefix = "LOGINSYSTEM"

	// EnvConfigJSON holds a JSON document merged over the file configuration.
	EnvConfigJSON = EnvPrefix + "_CONFIG_JSON"

	redacted = "********"

	devSigningKeyLength = 64
)

// ReadConfig from config file.
// path is the directory holding main.toml, it defaults to ./etc/.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.AddConfigPath(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode "+EnvConfigJSON)
	}

	return c, nil
}

// Redacted returns a copy of c with every secret masked.
func Redacted(c Config) Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}

		return redacted
	}

	c.DB.Password = mask(c.DB.Password)
	c.Auth.LDAP.BindPassword = mask(c.Auth.LDAP.BindPassword)
	c.Auth.Token.SigningKey = mask(c.Auth.Token.SigningKey)

	users := make([]auth.FallbackUser, len(c.Auth.Fallback.Users))
	for i, u := range c.Auth.Fallback.Users {
		u.Password = mask(u.Password)
		users[i] = u
	}

	c.Auth.Fallback.Users = users

	return c
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c Config) (string, error) {
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out) + "\n", nil
}

// EnsureSigningKey makes sure a token signing key is present. In dev mode a
// random key is generated, so tokens do not survive a restart.
func (c *Config) EnsureSigningKey() error {
	if c.Auth.Token.SigningKey != "" {
		return nil
	}

	if !c.DevMode {
		return ErrSigningKeyRequired
	}

	c.Auth.Token.SigningKey = uniuri.NewLen(devSigningKeyLength)

	log.Warn().Msg("no token signing key configured, generated an ephemeral dev key")

	return nil
}

// validate minimal config settings and fill defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Webserver.RevocationGC == 0 {
		c.Webserver.RevocationGC = 60
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineSQLite
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnsupportedEngine, invalidErrMessage)
	}

	if c.DB.GormEngine == EngineSQLite && c.DB.Name == "" {
		c.DB.Name = "loginsystem.db"
	}

	return validateAuth(&c.Auth)
}

func validateAuth(a *Auth) error {
	invalidErrMessage := "invalid auth config"

	if a.VerifyTimeout <= 0 {
		a.VerifyTimeout = auth.DefaultVerifyTimeout
	}

	if a.Token.Lifetime <= 0 {
		a.Token.Lifetime = auth.DefaultTokenLifetime
	}

	if a.Token.Issuer == "" {
		a.Token.Issuer = "loginsystem"
	}

	if a.Token.Audience == "" {
		a.Token.Audience = "loginsystem-api"
	}

	if a.LDAP.Enabled && a.LDAP.Host == "" {
		return errors.Wrap(ErrLDAPHostEmpty, invalidErrMessage)
	}

	if a.LDAP.Enabled && a.LDAP.Port == 0 {
		a.LDAP.Port = 389
		if a.LDAP.UseSSL {
			a.LDAP.Port = 636
		}
	}

	if a.OIDC.Enabled && (a.OIDC.Issuer == "" || a.OIDC.Audience == "") {
		return errors.Wrap(ErrOIDCIssuerEmpty, invalidErrMessage)
	}

	if a.Token.Issuer == a.OIDC.Issuer {
		return errors.Wrap(ErrIssuerClash, invalidErrMessage)
	}

	return nil
}

// ShutDownDuration returns the drain window as a duration.
func (w Webserver) ShutDownDuration() time.Duration {
	return time.Duration(w.ShutDownTime) * time.Second
}
