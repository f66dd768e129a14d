package wheel

var (
	overRevColor = RGB(255, 150, 0)
	coldColor    = RGB(0, 100, 255)
	hotColor     = RGB(255, 50, 0)
)

// Aux strip slots
const (
	auxTemperature = 0
	auxRunning     = 3
)

const runningHue = 30

// litCount is the real-valued number of main strip LEDs the RPM asks for.
// It is negative below MinRPM and exceeds the strip length above FlashRPM.
func litCount(rpm int) float64 {
	return float64(rpm-MinRPM) / float64(FlashRPM-MinRPM) * MainLEDCount
}

// pixelPower is how far past its switch-on point pixel i is. The arc fills
// from the last pixel towards the first, so the strip is exactly full at
// FlashRPM.
func pixelPower(lit float64, i int) float64 {
	return lit - float64(MainLEDCount-1-i)
}

// flashPeriodMillis is FlashTime in whole milliseconds
const flashPeriodMillis = FlashTime * 1000

// flashOn is true during the first half of every flash period since mode
// entry. The phase is taken from the frame count in integer milliseconds so
// every window starts lit.
func flashOn(ticks uint64, rate int) bool {
	millis := ticks * 1000 / uint64(rate)
	return millis%flashPeriodMillis < flashPeriodMillis/2
}

func (r *Renderer) renderTach(rpm int, brightness float64, flash bool) {
	if rpm > FlashRPM {
		if flash {
			r.fillMain(overRevColor.Scaled(brightness))
		} else {
			r.fillMain(Off)
		}
		return
	}

	lit := litCount(rpm)
	for i := range r.mainPixels {
		hue := uint8(i * 4)
		power := pixelPower(lit, i)
		switch {
		case power > 1:
			r.mainPixels[i] = HSV(hue, 255, level(brightness))
		case power > 0:
			r.mainPixels[i] = HSV(hue, 255, level(brightness*power*power))
		default:
			r.mainPixels[i] = Off
		}
	}
}

// renderRainbowTach is the tachometer with a moving rainbow, a linear falloff
// and a dim glow on unlit pixels.
func (r *Renderer) renderRainbowTach(rpm int, brightness float64, flash bool, hueShift int) {
	if rpm > FlashRPM {
		for i := range r.mainPixels {
			if flash {
				r.mainPixels[i] = HSV(uint8(i*16+hueShift), 255, level(brightness))
			} else {
				r.mainPixels[i] = Off
			}
		}
		return
	}

	lit := litCount(rpm)
	for i := range r.mainPixels {
		hue := uint8(i*16 + hueShift)
		power := pixelPower(lit, i)
		switch {
		case power > 1:
			r.mainPixels[i] = HSV(hue, 255, level(brightness))
		case power > 0:
			r.mainPixels[i] = HSV(hue, 255, level(brightness*power))
		default:
			r.mainPixels[i] = HSV(hue, 255, level(brightness*0.1))
		}
	}
}

func (r *Renderer) renderAuxStatus(snap Snapshot, flash bool) {
	r.fillAux(Off)
	r.auxPixels[auxTemperature] = temperatureColor(snap.EngineTemp, flash).Scaled(snap.Brightness)

	if snap.RPM > 0 {
		r.auxPixels[auxRunning] = HSV(runningHue, 255, level(snap.Brightness))
	}
}

func temperatureColor(temp int, flash bool) Pixel {
	switch {
	case temp < EngineColdTemp:
		return coldColor
	case temp < EngineHotTemp:
		return Off
	case temp < EngineVeryHotTemp:
		return hotColor
	case flash:
		return hotColor
	default:
		return Off
	}
}
