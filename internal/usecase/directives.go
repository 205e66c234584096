package usecase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Directives are the fixed instruction payloads sent to the vision-analysis
// collaborator per stage. Defaults can be overridden from a YAML file, but
// the pipeline always runs with exactly three enhancement styles.
type Directives struct {
	Detection   string   `yaml:"detection"`
	Isolation   string   `yaml:"isolation"`
	Enhancement string   `yaml:"enhancement"`
	Styles      []string `yaml:"styles"`
}

const defaultDetectionDirective = `Look at this image from a video and identify ANY objects that could be considered products being shown, reviewed, demonstrated, or unboxed.

Look for items like:
- Electronics (phones, laptops, gadgets)
- Beauty products (makeup, skincare, cosmetics)
- Fashion items (clothes, shoes, accessories)
- Household items (kitchen tools, decor, appliances)
- Food/drinks being reviewed
- Books, games, toys
- ANY object that someone might review or showcase

Be generous in your detection - if there's ANY object that looks like it could be a product, include it.

For each item you find, provide:
1. Product name/type
2. Confidence level (0-1)
3. Brief description
4. Whether this frame shows the product clearly

Respond in JSON format:
{
    "products": [
        {
            "name": "product name",
            "confidence": 0.8,
            "description": "brief description",
            "is_good_frame": true
        }
    ]
}`

const defaultIsolationDirective = `Segment the product "%s" from this image.

Create a clean, cropped image of just the product with:
- White or transparent background
- Product centered and well-framed
- High quality and clear visibility

Focus on the main product and remove any background elements, hands, or other objects.`

const defaultEnhancementDirective = `Enhance this product image with: %s

Make it look like a professional product photo suitable for:
- E-commerce websites
- Marketing materials
- Product catalogs

Ensure the product is the main focus and looks appealing.`

func DefaultDirectives() Directives {
	return Directives{
		Detection:   defaultDetectionDirective,
		Isolation:   defaultIsolationDirective,
		Enhancement: defaultEnhancementDirective,
		Styles: []string{
			"professional product photography with clean white background",
			"modern lifestyle setting with subtle background",
			"e-commerce style with shadow and depth",
		},
	}
}

// LoadDirectives returns the defaults, overlaid with any fields set in the
// YAML file at path. An empty path means defaults only.
func LoadDirectives(path string) (Directives, error) {
	d := DefaultDirectives()
	if path == "" {
		return d, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Directives{}, fmt.Errorf("read directives file: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Directives{}, fmt.Errorf("parse directives file: %w", err)
	}
	if len(d.Styles) != 3 {
		return Directives{}, fmt.Errorf("directives file must define exactly 3 styles, got %d", len(d.Styles))
	}
	return d, nil
}

func (d Directives) IsolationFor(productName string) string {
	return fmt.Sprintf(d.Isolation, productName)
}

func (d Directives) EnhancementFor(style string) string {
	return fmt.Sprintf(d.Enhancement, style)
}
