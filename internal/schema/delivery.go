package schema

// Field keys for delivery export columns.
const (
	ColOrderDate     = "order_date"
	ColOrderCode     = "order_code"
	ColCustomerCode  = "customer_code"
	ColCustomerName  = "customer_name"
	ColCustomerEmail = "customer_email"
	ColCustomerPhone = "customer_phone"
	ColSellerName    = "seller_name"
	ColDeliveryDate  = "delivery_date"
	ColCity          = "city"
	ColState         = "state"
	ColStatus        = "status"
	ColCarrierName   = "carrier_name"
)

// DeliveryExport is the order report exported by the ERP: six title/header
// rows, twelve positional columns, and two trailing total rows.
var DeliveryExport = Layout{
	Name:       "delivery_export",
	HeaderRows: 6,
	FooterRows: 2,
	Columns: []Column{
		{Field: ColOrderDate, Label: "Order date", Type: FieldDate},
		{Field: ColOrderCode, Label: "Order code", Type: FieldText, Required: true},
		{Field: ColCustomerCode, Label: "Customer code", Type: FieldText},
		{Field: ColCustomerName, Label: "Customer name", Type: FieldText},
		{Field: ColCustomerEmail, Label: "Customer email", Type: FieldText},
		{Field: ColCustomerPhone, Label: "Customer phone", Type: FieldText},
		{Field: ColSellerName, Label: "Seller", Type: FieldText},
		{Field: ColDeliveryDate, Label: "Delivery date", Type: FieldDate},
		{Field: ColCity, Label: "City", Type: FieldText},
		{Field: ColState, Label: "State", Type: FieldText},
		{Field: ColStatus, Label: "Status", Type: FieldEnum},
		{Field: ColCarrierName, Label: "Carrier", Type: FieldText},
	},
}
