package melspec

import "math"

// hannWindow generates a periodic Hann window of length n, the form used
// for spectral analysis.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	fSP        = 200.0 / 3
	minLogHz   = 1000.0
	minLogMel  = minLogHz / fSP
	logStepMel = 0.06875177742094912 // ln(6.4) / 27
)

// hzToMel converts frequency in Hz to the Slaney mel scale.
func hzToMel(hz float64) float64 {
	if hz >= minLogHz {
		return minLogMel + math.Log(hz/minLogHz)/logStepMel
	}
	return hz / fSP
}

// melToHz converts a Slaney mel value back to Hz.
func melToHz(mel float64) float64 {
	if mel >= minLogMel {
		return minLogHz * math.Exp(logStepMel*(mel-minLogMel))
	}
	return fSP * mel
}

// melFilterBank creates the triangular filter bank with Slaney area
// normalization. Returns [numMels][fftSize/2+1].
func melFilterBank(numMels, fftSize, sampleRate int, fMin, fMax float64) [][]float64 {
	bins := fftSize/2 + 1

	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	// numMels + 2 points equally spaced on the mel scale.
	lowMel, highMel := hzToMel(fMin), hzToMel(fMax)
	melF := make([]float64, numMels+2)
	for i := range melF {
		melF[i] = melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1))
	}

	bank := make([][]float64, numMels)
	for m := range numMels {
		lower, center, upper := melF[m], melF[m+1], melF[m+2]
		enorm := 2 / (upper - lower)
		filter := make([]float64, bins)
		for k, f := range fftFreqs {
			down := (f - lower) / (center - lower)
			up := (upper - f) / (upper - center)
			if w := math.Min(down, up); w > 0 {
				filter[k] = w * enorm
			}
		}
		bank[m] = filter
	}
	return bank
}
