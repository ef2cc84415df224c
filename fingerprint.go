package tinkoff

// defaultFingerprint describes the browser the sign up request claims to come
// from. The remote side refuses logins without it.
var defaultFingerprint = map[string]string{
	"entrypoint_type": "context",
	"fingerprint": "Mozilla/5.0 (Windows NT 10.0 Win64 x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/69.0.3497.100 Safari/537.36" +
		"###1920x1080x24###-180###true###true###" +
		"Chrome PDF Plugin::Portable Document Format::application/x-google-chrome-pdf~pdf;" +
		"Chrome PDF Viewer::::application/pdf~pdf;" +
		"Native Client::::application/x-nacl~,application/x-pnacl~",
	"fingerprint_gpu_shading_language_version": "WebGL GLSL ES 1.0 (OpenGL ES GLSL ES 1.0 Chromium)",
	"fingerprint_gpu_vendor":                   "WebKit",
	"fingerprint_gpu_extensions_hash":          "3edb841ebc63ed5979dac735b1c34d6c",
	"fingerprint_gpu_extensions_count":         "26",
	"fingerprint_device_platform":              "Win32",
	"fingerprint_client_timezone":              "-180",
	"fingerprint_client_language":              "ru-RU",
	"fingerprint_canvas":                       "fe6505667f07db8da4e98ccca66d6adb",
	"fingerprint_accept_language":              "ru-RU,ru,en-US,en",
	"mid":                                      "78361992811047472982056945525899061491",
	"device_type":                              "desktop",
	"form_view_mode":                           "desktop",
}

// DefaultFingerprint returns a copy of the built-in device fingerprint
func DefaultFingerprint() map[string]string {
	fp := make(map[string]string, len(defaultFingerprint))
	for k, v := range defaultFingerprint {
		fp[k] = v
	}
	return fp
}
