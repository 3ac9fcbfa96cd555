package stub

// fragments are the server-rendered HTML sections the shell swaps between.
// The markup is intentionally minimal; the shell only needs stable names
// and form fields.
var fragments = map[string]string{
	"scheduler": `<section data-section="scheduler">
  <div id="provider-filter"><input name="providerFilter" placeholder="Find provider"></div>
  <div id="calendar"></div>
</section>`,

	"patient": `<section data-section="patient">
  <form id="patient-search-form">
    <input name="firstName"><input name="lastName"><input name="dob">
    <input name="phone"><input name="email">
    <input name="city"><input name="state"><input name="zip">
  </form>
  <table id="patient-results"></table>
  <button id="new-patient">New Patient</button>
</section>`,

	"provider": `<section data-section="provider">
  <form id="provider-search-form">
    <input name="firstName"><input name="lastName"><input name="specialty">
    <input type="checkbox" name="inPracticeOnly">
  </form>
  <table id="provider-results"></table>
</section>`,

	"demographics": `<section data-section="demographics">
  <form id="demographics-form">
    <input name="firstName"><input name="lastName"><input name="dob">
    <input name="phonePrimary"><input name="email">
    <input name="addressLine1"><input name="city"><input name="state"><input name="zip">
  </form>
</section>`,

	"appointment-details": `<div id="appointment-modal">
  <form id="appointment-form">
    <input name="patientName" data-suggest="patient">
    <input name="providerName" data-suggest="provider">
    <input name="date"><input name="timeStart"><input name="timeEnd">
    <input name="duration"><input name="reason">
    <select name="appointmentType"></select>
    <select name="status"></select>
    <button name="save">Save</button>
    <button name="delete">Delete</button>
    <button name="cancel">Cancel</button>
  </form>
</div>`,
}
