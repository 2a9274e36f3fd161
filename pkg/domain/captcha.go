package domain

// likeKeyLen is how much of the image payload identifies a challenge for the
// local like store. The payload is a stable markup fragment, so a fixed
// prefix is a usable key even when the server omits captchaId.
const likeKeyLen = 80

// Captcha is one challenge instance. It is replaced wholesale on
// submit/skip/timeout, never mutated in place.
type Captcha struct {
	ID         string `json:"captchaId"`
	Image      string `json:"image"` // renderable markup fragment
	Difficulty string `json:"difficulty,omitempty"`
}

// LikeKey returns the stable local-storage key for this challenge.
func (c Captcha) LikeKey() string {
	if len(c.Image) <= likeKeyLen {
		return c.Image
	}
	return c.Image[:likeKeyLen]
}

// SubmitResult is the server's verdict on a submitted answer.
type SubmitResult struct {
	Success bool    `json:"success"`
	Earned  float64 `json:"earned"`
	Balance float64 `json:"totalBalance"`
	Message string  `json:"message,omitempty"`
}

// CaptchaSettings holds the admin-tunable captcha timing.
type CaptchaSettings struct {
	ReloadTime int `json:"reloadTime"`
}
