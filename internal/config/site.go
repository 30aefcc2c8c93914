package config

// SiteConfig holds per-host crawl settings.
type SiteConfig struct {
	// Cookie is sent with every request, e.g. "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth when positive.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are path globs that are never followed.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, are the only path globs followed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File is the structure of the .torbot configuration file.
type File struct {
	// Defaults apply to every site unless a site overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hostnames (e.g. "example.onion") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Rules is a path to classification rules used instead of the
	// built-in set. --rules takes precedence.
	Rules string `yaml:"rules,omitempty"`

	// PhoneRegion (e.g. "US") is used for tel: numbers without a country
	// code. --phone-region takes precedence.
	PhoneRegion string `yaml:"phoneRegion,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the
// defaults. Headers merge key by key; other fields replace.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}
