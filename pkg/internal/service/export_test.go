package service

// SetInviteTokenGenerator 替换邀请令牌生成函数，返回恢复函数.
func SetInviteTokenGenerator(fn func() (string, string, error)) func() {
	prev := newInviteToken
	newInviteToken = fn

	return func() { newInviteToken = prev }
}
