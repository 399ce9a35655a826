package fiscal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-auditor/pkg/fiscal"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe35240511222333000181550010000000421000000017" versao="4.00">
      <ide><nNF>42</nNF><serie>1</serie><dhEmi>2024-05-10T09:30:00-03:00</dhEmi></ide>
      <emit><xNome>Emitente LTDA</xNome><CNPJ>11222333000181</CNPJ></emit>
      <dest><xNome>Cliente SA</xNome><CNPJ>99888777000166</CNPJ></dest>
      <det nItem="1">
        <prod>
          <cProd>P1</cProd><xProd>Produto</xProd><NCM>85171231</NCM><CFOP>5102</CFOP>
          <uCom>UN</uCom><qCom>1.0000</qCom><vUnCom>10.00</vUnCom><vProd>10.00</vProd>
        </prod>
        <imposto><ICMS><ICMS00><orig>0</orig><CST>00</CST></ICMS00></ICMS></imposto>
      </det>
      <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
    </infNFe>
  </NFe>
</nfeProc>`

func TestAuditor_Extract(t *testing.T) {
	auditor := fiscal.NewAuditor()

	doc, err := auditor.Extract("nota.xml", []byte(sampleXML))
	require.NoError(t, err)
	assert.Equal(t, "35240511222333000181550010000000421000000017", doc.Header.Chave)
	assert.Equal(t, "nota.xml", doc.Header.Arquivo)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "85171231", doc.Items[0].NCM)
}

func TestAuditor_Extract_Malformed(t *testing.T) {
	auditor := fiscal.NewAuditor()

	_, err := auditor.Extract("bad.xml", []byte("no xml here"))
	require.Error(t, err)

	var mde *fiscal.MalformedDocumentError
	assert.ErrorAs(t, err, &mde)
}

func TestAuditor_AuditWithStaticTables(t *testing.T) {
	gateway := fiscal.StaticTables(fiscal.Tables{})

	auditor := fiscal.NewAuditorWithOptions(fiscal.Options{Gateway: gateway})

	payloads, err := fiscal.ExpandPayloads("nota.xml", []byte(sampleXML))
	require.NoError(t, err)

	result, err := auditor.Audit(payloads, fiscal.ByNCMCFOP, true)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Documents, 1)
	require.Len(t, result.Consolidated, 1)
	assert.Equal(t, "85171231", result.Consolidated[0].Keys[fiscal.KeyNCM])
	// Empty tables suppress existence checks; the document is clean.
	assert.Empty(t, result.Findings)
}

func TestValidate(t *testing.T) {
	items := []fiscal.Item{{NCM: "123", CFOP: "5102"}}

	findings := fiscal.Validate(items, fiscal.Tables{})
	require.NotEmpty(t, findings)
	assert.Equal(t, fiscal.SeverityWarning, findings[0].Severity)
}

func TestConsolidate(t *testing.T) {
	items := []fiscal.Item{
		{XProd: "A", NCM: "1", CFOP: "5102", QCom: "2", VProd: "10"},
		{XProd: "A", NCM: "1", CFOP: "5102", QCom: "3", VProd: "15"},
	}

	rows, err := fiscal.Consolidate(items, fiscal.ByProductNCMCFOP)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Keys[fiscal.KeyXProd])
}
