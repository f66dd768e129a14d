package wheel

// FullIntensity is the value of the strip's global intensity byte. Brightness
// is premultiplied into the colour channels instead.
const FullIntensity = 0xFF

// Pixel is one strip LED in the order the strip driver expects it
type Pixel struct {
	B, G, R, I uint8
}

// Off is a dark pixel
var Off = RGB(0, 0, 0)

func RGB(r, g, b uint8) Pixel {
	return Pixel{B: b, G: g, R: r, I: FullIntensity}
}

func (p Pixel) IsOff() bool {
	return p.R == 0 && p.G == 0 && p.B == 0
}

// Pack returns the pixel as a little-endian B,G,R,I word
func (p Pixel) Pack() uint32 {
	return uint32(p.B) | uint32(p.G)<<8 | uint32(p.R)<<16 | uint32(p.I)<<24
}

// Scaled multiplies every colour channel by factor, truncating
func (p Pixel) Scaled(factor float64) Pixel {
	return Pixel{
		B: uint8(float64(p.B) * factor),
		G: uint8(float64(p.G) * factor),
		R: uint8(float64(p.R) * factor),
		I: p.I,
	}
}

// HSV converts a hue/saturation/value triple into a pixel using 8-bit fixed
// point math. The hue circle is split into six regions of 43 steps.
func HSV(h, s, v uint8) Pixel {
	if s == 0 {
		return RGB(v, v, v)
	}

	hh, ss, vv := int(h), int(s), int(v)
	region := hh / 43
	remainder := (hh - region*43) * 6

	p := uint8((vv * (255 - ss)) >> 8)
	q := uint8((vv * (255 - ((ss * remainder) >> 8))) >> 8)
	t := uint8((vv * (255 - ((ss * (255 - remainder)) >> 8))) >> 8)

	switch region {
	case 0:
		return RGB(v, t, p)
	case 1:
		return RGB(q, v, p)
	case 2:
		return RGB(p, v, t)
	case 3:
		return RGB(p, q, v)
	case 4:
		return RGB(t, p, v)
	default:
		return RGB(v, p, q)
	}
}

// level converts a 0..1 intensity into a channel value, clamping anything
// outside the pixel range.
func level(intensity float64) uint8 {
	v := 255.0 * intensity
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
