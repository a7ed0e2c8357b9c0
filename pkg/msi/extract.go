package msi

import (
	"fmt"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/parsers/signature"
	"github.com/deploymenttheory/go-msi/internal/services"
	"github.com/deploymenttheory/go-msi/internal/types"
)

// sink receives the bytes of extracted streams
type sink interface {
	put(fileName string, data []byte) (string, error)
}

type dirSink struct {
	dir       string
	extractor services.StreamWriter
}

func (s dirSink) put(fileName string, data []byte) (string, error) {
	return s.extractor.WriteFile(s.dir, fileName, data)
}

type archiveSink struct {
	aw services.EntryWriter
}

func (s archiveSink) put(fileName string, data []byte) (string, error) {
	return s.aw.Add(fileName, data)
}

// Extract writes one stream into dir. A damaged stream is still written when part of
// it could be read, with status truncated; nothing readable means status failed and
// the read error is returned.
func (p *Package) Extract(name, dir string) (types.ExtractedStream, error) {
	entry, err := p.src.Resolve(name)
	if err != nil {
		return types.ExtractedStream{Name: name, Status: types.ExtractFailed, Error: err.Error()}, err
	}
	fileName := services.SanitizeFileName(path.Base(name), entry.ID)
	return p.extract(name, fileName, dirSink{dir: dir, extractor: p.extractor})
}

// ExtractAll writes every embedded stream into dir. Outcomes are reported per stream;
// only failing to create dir is an error.
func (p *Package) ExtractAll(dir string) (ExtractionReport, error) {
	report := ExtractionReport{Directory: dir, Streams: []types.ExtractedStream{}}
	out := dirSink{dir: dir, extractor: p.extractor}
	if err := p.extractor.PrepareDir(dir); err != nil {
		return report, err
	}

	taken := map[string]bool{}
	for _, info := range p.Streams(StreamOptions{}).Streams {
		fileName := services.UniqueFileName(services.SanitizeFileName(info.Name, info.ID), taken)
		result, _ := p.extract(info.Name, fileName, out)
		report.Streams = append(report.Streams, result)
	}
	return report, nil
}

// ExtractArchive writes every embedded stream into one tar archive at archivePath,
// compressed according to its extension (.tar.zst by default, .tar.xz, .tar.gz, .tar)
func (p *Package) ExtractArchive(archivePath string) (ExtractionReport, error) {
	report := ExtractionReport{Archive: archivePath, Streams: []types.ExtractedStream{}}

	modTime := time.Unix(0, 0).UTC()
	if p.summary.Created != nil {
		modTime = *p.summary.Created
	}
	aw, err := services.NewArchiveWriter(archivePath, services.CompressionForPath(archivePath), modTime)
	if err != nil {
		return report, err
	}

	taken := map[string]bool{}
	out := archiveSink{aw: aw}
	for _, info := range p.Streams(StreamOptions{}).Streams {
		fileName := services.UniqueFileName(services.SanitizeFileName(info.Name, info.ID), taken)
		result, _ := p.extract(info.Name, fileName, out)
		report.Streams = append(report.Streams, result)
	}
	if err := aw.Close(); err != nil {
		return report, err
	}
	return report, nil
}

// Certificate returns the signature blobs as stored. An unsigned package has status
// absent and no error. A truncated stream returns its readable prefix.
func (p *Package) Certificate() (types.Signature, error) {
	return signature.Locate(p.src)
}

// ExtractCertificate writes DigitalSignature and, when present, MsiDigitalSignatureEx
// into dir. An unsigned package writes nothing and reports status absent. Damaged
// streams are reported per file as truncated or failed.
func (p *Package) ExtractCertificate(dir string) (ExtractionReport, error) {
	report := ExtractionReport{Directory: dir, Streams: []types.ExtractedStream{}}
	sig, _ := p.Certificate()
	report.Signature = sig.Status
	if !sig.Present() {
		return report, nil
	}

	out := dirSink{dir: dir, extractor: p.extractor}
	names := []string{types.DigitalSignatureStream}
	if sig.HasExtended() {
		names = append(names, types.MsiDigitalSignatureExStream)
	}
	for i, name := range names {
		result, _ := p.extract(name, services.SanitizeFileName(name, i), out)
		report.Streams = append(report.Streams, result)
	}
	return report, nil
}

// extract reads one stream and hands it to out. The error is set only when nothing
// was written.
func (p *Package) extract(name, fileName string, out sink) (types.ExtractedStream, error) {
	result := types.ExtractedStream{Name: name}

	data, readErr := p.ReadStream(name)
	if readErr != nil && len(data) == 0 {
		result.Status = types.ExtractFailed
		result.Error = readErr.Error()
		return result, readErr
	}

	written, err := out.put(fileName, data)
	if err != nil {
		result.Status = types.ExtractFailed
		result.Error = err.Error()
		p.logger.WithFields(logrus.Fields{"stream": name, "reason": err.Error()}).Warn("failed to extract stream")
		return result, err
	}

	result.Path = written
	result.Size = len(data)
	result.Digest = p.digests.SHA256(data).String()
	result.Status = types.ExtractWritten
	if readErr != nil {
		result.Status = types.ExtractTruncated
		result.Error = fmt.Sprintf("partial content: %v", readErr)
	}
	return result, nil
}
