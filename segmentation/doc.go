// Package segmentation divides audio into labelled structural segments.
//
// A Segmenter is initialised for an input sample rate, fed one audio block
// per ExtractFeatures call (each block becomes one row of mean constant-Q
// magnitudes), and finally asked to Segment. Segment hands the matrix to a
// Classifier, which returns one cluster label per row, and run-length
// encodes the labels into a Segmentation whose boundaries fall on multiples
// of HopSize().
//
// Features computed elsewhere can be supplied with SetFeatures, which skips
// the constant-Q frontend entirely.
//
//	seg, err := segmentation.New(segmentation.DefaultConfig(), cluster.New())
//	if err != nil {
//	    return err
//	}
//	if err := seg.Initialise(44100); err != nil {
//	    return err
//	}
//	if _, err := seg.ExtractSignal(pcm, nil); err != nil {
//	    return err
//	}
//	if err := seg.Segment(); err != nil {
//	    return err
//	}
//	for _, s := range seg.Segmentation().Segments {
//	    fmt.Println(s.Start, s.End, s.Type)
//	}
package segmentation
