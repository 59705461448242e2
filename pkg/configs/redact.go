package configs

const redactedValue = "******"

func redact(s *string) {
	if *s != "" {
		*s = redactedValue
	}
}

// Redacted 返回隐藏了密码、密钥和令牌的副本，用于打印与排查.
// 未设置的字段保持为空，便于区分"未配置"与"已配置".
func (c AppConfig) Redacted() AppConfig {
	for _, s := range []*string{
		&c.DB.Password,
		&c.DB.DSN,
		&c.S3.SecretAccessKey,
		&c.KV.Redis.Password,
		&c.KV.NATS.Password,
		&c.MQ.NATS.Password,
		&c.MQ.NATS.JWT,
		&c.MQ.NATS.NKey,
		&c.MQ.Redis.Password,
		&c.Auth.JWTSecret,
		&c.Auth.AdminToken,
		&c.Email.Password,
	} {
		redact(s)
	}

	return c
}
