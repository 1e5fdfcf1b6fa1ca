// Package label assembles shipping labels: language selection, logo loading,
// template data and the render/rasterize pipeline.
package label

import (
	"context"
	"os"
	"path/filepath"

	"shippinglabel/internal/domain"
	"shippinglabel/internal/infra/logging"
	"shippinglabel/internal/render"
)

const (
	TemplateFile = "labelTemplate.html"
	LogoFile     = "code-logo.png"
)

// TemplateRenderer renders the template document at path with data.
type TemplateRenderer interface {
	Render(templatePath string, data render.Data) (string, error)
}

// Rasterizer turns rendered HTML into PDF bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, html string) ([]byte, error)
}

// Result is a generated label with the facts worth auditing.
type Result struct {
	PDF              []byte
	ResolvedLanguage string
	LogoFallback     bool
}

// Service generates labels. It holds no per-request state and is safe for concurrent use.
type Service struct {
	renderer   TemplateRenderer
	rasterizer Rasterizer
	assetsRoot string
	readFile   func(string) ([]byte, error)
}

// NewService wires the pipeline. assetsRoot contains labelTemplate.html and code-logo.png.
func NewService(renderer TemplateRenderer, rasterizer Rasterizer, assetsRoot string) *Service {
	return &Service{
		renderer:   renderer,
		rasterizer: rasterizer,
		assetsRoot: assetsRoot,
		readFile:   os.ReadFile,
	}
}

// AssetsRoot returns the directory holding the template and logo.
func (s *Service) AssetsRoot() string { return s.assetsRoot }

// GenerateLabel renders and rasterizes the label for req.
func (s *Service) GenerateLabel(ctx context.Context, req domain.LabelRequest) ([]byte, error) {
	res, err := s.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.PDF, nil
}

// Generate is GenerateLabel with the resolved language and logo outcome attached.
// Renderer and rasterizer errors are returned unchanged.
func (s *Service) Generate(ctx context.Context, req domain.LabelRequest) (Result, error) {
	html, lang, logo, err := s.renderHTML(req)
	if err != nil {
		return Result{}, err
	}
	pdf, err := s.rasterizer.Rasterize(ctx, html)
	if err != nil {
		return Result{}, err
	}
	return Result{PDF: pdf, ResolvedLanguage: lang, LogoFallback: logo.Fallback}, nil
}

// Preview runs the pipeline up to the rendered HTML.
func (s *Service) Preview(req domain.LabelRequest) (string, error) {
	html, _, _, err := s.renderHTML(req)
	return html, err
}

func (s *Service) renderHTML(req domain.LabelRequest) (string, string, Logo, error) {
	templatePath := filepath.Join(s.assetsRoot, TemplateFile)
	logoPath := filepath.Join(s.assetsRoot, LogoFile)

	logging.Info("Generating shipping label",
		"root_directory", s.assetsRoot,
		"template_path", templatePath,
		"logo_path", logoPath,
	)

	logo := LoadLogo(s.readFile, logoPath)
	if logo.Fallback {
		logging.Error("Error reading logo file, using placeholder", "error", logo.Err, "logo_path", logoPath)
	}

	lang := ResolveLanguage(req.Language)
	data := BuildTemplateData(req, logo)

	logging.Info("Rendering template",
		"language", lang,
		"order", req.Order,
		"company", req.ReturnAddress.Company,
	)

	html, err := s.renderer.Render(templatePath, data)
	if err != nil {
		return "", lang, logo, err
	}
	return html, lang, logo, nil
}

// BuildTemplateData flattens req, the resolved language pack and the logo into
// template data. language keeps the raw requested value.
func BuildTemplateData(req domain.LabelRequest, logo Logo) render.Data {
	pack := Pack(req.Language)
	data := make(render.Data, 9+len(pack))
	data["company"] = render.String(req.ReturnAddress.Company)
	data["address"] = render.String(req.ReturnAddress.Address)
	data["zip_code"] = render.String(req.ReturnAddress.ZipCode)
	data["city"] = render.String(req.ReturnAddress.City)
	data["country"] = render.String(req.ReturnAddress.Country)
	data["order"] = render.String(req.Order)
	data["name"] = render.String(req.Name)
	data["language"] = render.String(req.Language)
	for k, v := range pack {
		data[k] = render.String(v)
	}
	data["logoSrc"] = render.String(logo.DataURI)
	return data
}
