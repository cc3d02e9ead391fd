package render

import "os"

// CJKFontPaths are well-known TrueType fonts with Chinese glyphs, tried in
// order. TrueType collections (.ttc) are left out because the PDF writer
// cannot embed them.
var CJKFontPaths = []string{
	"C:/Windows/Fonts/simhei.ttf",
	"C:/Windows/Fonts/simkai.ttf",
	"C:/Windows/Fonts/simfang.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttf",
	"/usr/share/fonts/truetype/arphic/uming.ttf",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/google-droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansSC-Regular.ttf",
	"/usr/share/fonts/noto-cjk/NotoSansSC-Regular.ttf",
}

// UnicodeFontPaths cover Latin, Greek and Cyrillic text beyond the core
// font's code page.
var UnicodeFontPaths = []string{
	"C:/Windows/Fonts/arial.ttf",
	"/Library/Fonts/Arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	"/usr/share/fonts/noto/NotoSans-Regular.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

// SystemFontPaths is the search order used when no PDF font is configured.
var SystemFontPaths = append(append([]string{}, CJKFontPaths...), UnicodeFontPaths...)

// FindFont returns the first readable regular file among paths.
func FindFont(paths []string) (string, bool) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
