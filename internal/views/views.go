// Package views renders the shopping surfaces of the bot: the paginated store
// directory, store details, a product carousel, and the cart view.
package views

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"mallbot/core/telegram/callbacks"
	"mallbot/core/telegram/format"
	tghelpers "mallbot/core/telegram/helpers"
	"mallbot/core/telegram/keyboard"
	"mallbot/internal/cart"
	"mallbot/internal/storage"
)

// Callback keys served by this package.
const (
	CBStoresPage = "stores_page"
	CBStore      = "store"
	CBProducts   = "products"
	CBProductNav = "product_nav"
	CBAddToCart  = "add_cart"
	CBViewCart   = "view_cart"
	CBClearCart  = "clear_cart"
	CBCheckout   = "checkout_start"
)

const storesPerPage = 10

// Views holds the read-side handlers over the catalog and the cart.
// The product carousel position travels in callback payloads, so the views
// keep no per-user state of their own.
type Views struct {
	catalog storage.Catalog
	cart    *cart.Store
}

// New constructs the browsing views.
func New(catalog storage.Catalog, carts *cart.Store) *Views {
	return &Views{catalog: catalog, cart: carts}
}

// Welcome greets the user and shows the first page of stores.
func (v *Views) Welcome(c tele.Context) error {
	name := "there"
	if s := c.Sender(); s != nil && s.FirstName != "" {
		name = s.FirstName
	}
	text := fmt.Sprintf(
		"👋 Welcome, %s!\n\n"+
			"🏬 Browse the mall below. Pick a store to see its products, add them to your cart, and checkout when you are ready.",
		format.EscapeMD(name),
	)
	if err := tghelpers.SendMD(c, text); err != nil {
		return err
	}
	return v.renderStores(c, 0, false)
}

// Stores shows the store directory from the first page.
func (v *Views) Stores(c tele.Context) error {
	return v.renderStores(c, 0, false)
}

// StoresPage handles pagination callbacks, editing the directory in place.
func (v *Views) StoresPage(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil || page < 0 {
		page = 0
	}
	return v.renderStores(c, page, true)
}

func (v *Views) renderStores(c tele.Context, page int, edit bool) error {
	ctx := tghelpers.BuildContext(c)
	stores, total, err := v.catalog.ListStores(ctx, page*storesPerPage, storesPerPage)
	if err != nil {
		return fmt.Errorf("render stores: %w", err)
	}
	if total == 0 {
		return tghelpers.SendText(c, "No stores are open right now. Please check back later!")
	}

	lastPage := (total - 1) / storesPerPage
	if page > lastPage {
		page = lastPage
	}

	var rows [][]keyboard.InlineBtn
	for _, s := range stores {
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "🏪 " + s.Name, Unique: CBStore, Data: s.ID},
		})
	}

	var nav []keyboard.InlineBtn
	if page > 0 {
		nav = append(nav, keyboard.InlineBtn{
			Text: "⬅️ Previous", Unique: CBStoresPage, Data: strconv.Itoa(page - 1),
		})
	}
	if page < lastPage {
		nav = append(nav, keyboard.InlineBtn{
			Text: "More ➡️", Unique: CBStoresPage, Data: strconv.Itoa(page + 1),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "🛒 View Cart", Unique: CBViewCart}})

	text := fmt.Sprintf("🏬 *Our Stores* (page %d of %d)\n\nSelect a store to browse:", page+1, lastPage+1)
	markup := keyboard.InlineButtonsRows(rows...)
	if edit {
		return tghelpers.EditOrSendMD(c, text, markup)
	}
	return tghelpers.SendMD(c, text, markup)
}

// StoreDetails shows one store with its contact info and payment methods.
func (v *Views) StoreDetails(c tele.Context) error {
	storeID := callbacks.CallbackPayload(c)
	ctx := tghelpers.BuildContext(c)

	store, err := v.catalog.GetStore(ctx, storeID)
	if errors.Is(err, storage.ErrNotFound) {
		return tghelpers.SendText(c, "This store is no longer available.")
	}
	if err != nil {
		return fmt.Errorf("store details %s: %w", storeID, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏪 *%s*\n\n", format.EscapeMD(store.Name))
	if desc := format.DerefString(store.Description, ""); desc != "" {
		fmt.Fprintf(&b, "%s\n\n", format.EscapeMD(desc))
	}
	if addr := format.DerefString(store.Address, ""); addr != "" {
		fmt.Fprintf(&b, "📍 %s\n", format.EscapeMD(addr))
	}
	if phone := format.DerefString(store.PhoneNumber, ""); phone != "" {
		fmt.Fprintf(&b, "📱 %s\n", format.EscapeMD(phone))
	}
	if methods := store.PaymentMethods(); len(methods) > 0 {
		labels := make([]string, 0, len(methods))
		for _, m := range methods {
			labels = append(labels, m.Label())
		}
		fmt.Fprintf(&b, "💳 Payments: %s\n", strings.Join(labels, ", "))
	}

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	rows = append(rows, markup.Row(markup.Data("🛍 View Products", CBProducts, store.ID)))
	if link := format.DerefString(store.ChannelLink, ""); link != "" {
		rows = append(rows, markup.Row(markup.URL("📣 Store Channel", link)))
	}
	rows = append(rows, markup.Row(markup.Data("⬅️ Back to Stores", CBStoresPage, "0")))
	markup.Inline(rows...)

	return tghelpers.EditOrSendMD(c, b.String(), markup)
}

// Products opens the product carousel of a store at the first product.
func (v *Views) Products(c tele.Context) error {
	storeID := callbacks.CallbackPayload(c)
	return v.renderProduct(c, storeID, 0)
}

// ProductNav moves the carousel; payload is "storeID|index".
func (v *Views) ProductNav(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) != 2 {
		return nil
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		index = 0
	}
	return v.renderProduct(c, parts[0], index)
}

func (v *Views) renderProduct(c tele.Context, storeID string, index int) error {
	ctx := tghelpers.BuildContext(c)
	products, err := v.catalog.ListProducts(ctx, storeID)
	if err != nil {
		return fmt.Errorf("products of %s: %w", storeID, err)
	}
	if len(products) == 0 {
		return tghelpers.SendText(c, "This store has no products in stock right now.")
	}

	if index < 0 {
		index = len(products) - 1
	}
	if index >= len(products) {
		index = 0
	}
	p := products[index]

	var b strings.Builder
	fmt.Fprintf(&b, "🛍 *%s*\n\n", format.EscapeMD(p.Name))
	if desc := format.DerefString(p.Description, ""); desc != "" {
		fmt.Fprintf(&b, "%s\n\n", format.EscapeMD(desc))
	}
	fmt.Fprintf(&b, "💰 Price: %s\n", format.FormatCurrency(p.Price))
	fmt.Fprintf(&b, "📦 In stock: %d\n\n", p.StockQuantity)
	fmt.Fprintf(&b, "Product %d of %d", index+1, len(products))
	if img := format.DerefString(p.ImageURL, ""); img != "" {
		fmt.Fprintf(&b, "\n\n[🖼 Photo](%s)", img)
	}

	navData := func(i int) string { return storeID + "|" + strconv.Itoa(i) }
	rows := [][]keyboard.InlineBtn{
		{
			{Text: "⬅️", Unique: CBProductNav, Data: navData(index - 1)},
			{Text: fmt.Sprintf("%d/%d", index+1, len(products)), Unique: CBProductNav, Data: navData(index)},
			{Text: "➡️", Unique: CBProductNav, Data: navData(index + 1)},
		},
		{{Text: "➕ Add to Cart", Unique: CBAddToCart, Data: p.ID}},
		{{Text: "🛒 View Cart", Unique: CBViewCart}},
		{{Text: "⬅️ Back to Store", Unique: CBStore, Data: storeID}},
	}

	return tghelpers.EditOrSendMD(c, b.String(), keyboard.InlineButtonsRows(rows...))
}

// AddToCart puts one unit of the product into the sender's cart.
func (v *Views) AddToCart(c tele.Context) error {
	productID := callbacks.CallbackPayload(c)
	ctx := tghelpers.BuildContext(c)

	product, err := v.catalog.GetProduct(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return tghelpers.SendText(c, "This product is no longer available.")
	}
	if err != nil {
		return fmt.Errorf("add to cart %s: %w", productID, err)
	}
	store, err := v.catalog.GetStore(ctx, product.StoreID)
	if err != nil {
		return fmt.Errorf("add to cart %s: %w", productID, err)
	}
	if err := v.cart.Add(c.Sender().ID, product, store.Name, 1); err != nil {
		return err
	}

	text := fmt.Sprintf("✅ *%s* added to your cart!\n\nCart total: %s",
		format.EscapeMD(product.Name),
		format.FormatCurrency(v.cart.Total(c.Sender().ID)),
	)
	return tghelpers.SendMD(c, text, keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "🛒 View Cart", Unique: CBViewCart}},
		[]keyboard.InlineBtn{{Text: "🛍 Keep Shopping", Unique: CBStore, Data: product.StoreID}},
	))
}

// Cart shows the cart contents with checkout and clear actions.
func (v *Views) Cart(c tele.Context) error {
	userID := c.Sender().ID
	items := v.cart.Items(userID)
	if len(items) == 0 {
		return tghelpers.SendMD(c, "🛒 Your cart is empty.\n\nBrowse our stores to add products!",
			keyboard.InlineButtonsRows([]keyboard.InlineBtn{
				{Text: "🏬 Browse Stores", Unique: CBStoresPage, Data: "0"},
			}))
	}

	text := fmt.Sprintf("🛒 *Your Cart*\n\n%s\n\n💰 *Total: %s*",
		v.cart.Summary(userID),
		format.FormatCurrency(v.cart.Total(userID)),
	)
	return tghelpers.SendMD(c, text, keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Checkout", Unique: CBCheckout}},
		[]keyboard.InlineBtn{{Text: "🗑 Clear Cart", Unique: CBClearCart}},
		[]keyboard.InlineBtn{{Text: "🏬 Back to Stores", Unique: CBStoresPage, Data: "0"}},
	))
}

// ClearCart empties the sender's cart.
func (v *Views) ClearCart(c tele.Context) error {
	v.cart.Clear(c.Sender().ID)
	return tghelpers.SendMD(c, "🗑 Cart cleared.", keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "🏬 Browse Stores", Unique: CBStoresPage, Data: "0"}},
	))
}
