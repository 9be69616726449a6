package marketplace

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_fetcher.go -package=mocks github.com/mwantia/gocatalog/pkg/marketplace Fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MainDomain      = "booth.pm"
	SubdomainSuffix = ".booth.pm"
)

var (
	// ErrInvalidURL is returned for urls that are not marketplace product pages
	ErrInvalidURL = errors.New("invalid marketplace url")
	// ErrNoShop is returned when a url carries no shop subdomain
	ErrNoShop = errors.New("marketplace url does not name a shop")
)

var urlValidator = validator.New()

// ProductInfo is the metadata known about a marketplace product
type ProductInfo struct {
	ProductID    *int64   `json:"productId,omitempty"`
	ShopName     string   `json:"shopName"`
	ProductName  string   `json:"productName"`
	Price        *int64   `json:"price,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	URL          string   `json:"url"`
}

// Fetcher retrieves product metadata for a marketplace url
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*ProductInfo, error)
}

// ValidateURL accepts product page urls such as
// https://shop.booth.pm/items/123 and https://booth.pm/ja/items/123.
func ValidateURL(raw string) error {
	if err := urlValidator.Var(raw, "required,url"); err != nil {
		return fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if !isMarketplaceHost(parsed.Hostname()) {
		return fmt.Errorf("%w: unexpected host %q", ErrInvalidURL, parsed.Hostname())
	}
	if _, ok := itemID(parsed.Path); !ok {
		return fmt.Errorf("%w: %q is not a product page", ErrInvalidURL, parsed.Path)
	}
	return nil
}

// ProductID extracts the numeric item id of a product url
func ProductID(raw string) (int64, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return 0, false
	}
	return itemID(parsed.Path)
}

// ParseURL derives minimal product metadata from the url alone: the shop is
// the subdomain and the product is named after its item id.
func ParseURL(raw string) (*ProductInfo, error) {
	if err := ValidateURL(raw); err != nil {
		return nil, err
	}

	parsed, _ := url.Parse(raw)
	host := strings.ToLower(parsed.Hostname())
	shop := strings.TrimSuffix(host, SubdomainSuffix)
	if host == MainDomain || shop == "" || strings.Contains(shop, ".") {
		return nil, fmt.Errorf("%w: %s", ErrNoShop, raw)
	}

	id, _ := itemID(parsed.Path)
	return &ProductInfo{
		ProductID:   &id,
		ShopName:    shop,
		ProductName: fmt.Sprintf("product_%d", id),
		URL:         raw,
	}, nil
}

// URLFetcher is a Fetcher that never touches the network and answers from
// the url alone.
type URLFetcher struct{}

var _ Fetcher = URLFetcher{}

func (URLFetcher) Fetch(ctx context.Context, raw string) (*ProductInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseURL(raw)
}

func isMarketplaceHost(host string) bool {
	host = strings.ToLower(host)
	return host == MainDomain || strings.HasSuffix(host, SubdomainSuffix)
}

// itemID finds the numeric segment following "items" in a url path
func itemID(path string) (int64, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if segment != "items" || i+1 >= len(segments) {
			continue
		}

		id, err := strconv.ParseInt(segments[i+1], 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}
