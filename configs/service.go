package configs

type ServiceConfig struct {
	ServiceName   string   `yaml:"service_name"`
	HttpPort      string   `yaml:"http_port"`
	PublicBaseURL string   `yaml:"public_base_url"` // Base of the redemption URLs embedded in QR codes
	AllowOrigins  []string `yaml:"allow_origins"`
}
